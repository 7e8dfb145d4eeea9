package admission

import (
	"fastrelay/internal/packet"
	"fmt"
)

// Creates a filter. A non-zero port restricts redirection to IPv4/UDP
// frames addressed to that port.
func New(port uint16) (new *Filter) {
	new = &Filter{port: port}
	empty := make(map[int]Socket)
	new.bindings.Store(&empty)
	return
}

// True when queue has a bound socket
func (filter *Filter) ShouldRedirect(queue int) (redirect bool) {
	_, redirect = (*filter.bindings.Load())[queue]
	return
}

// True when frame passes the port gate
func (filter *Filter) Matches(frame []byte) (match bool) {
	if filter.port == 0 {
		match = true
		return
	}
	view, err := packet.Parse(frame)
	if err != nil {
		return
	}
	match = view.DstPort() == filter.port
	return
}

// Hands frame to the socket bound to queue
func (filter *Filter) Redirect(queue int, frame []byte) (err error) {
	socket, bound := (*filter.bindings.Load())[queue]
	if !bound {
		err = ErrUnbound
		return
	}
	err = socket.WriteFrame(frame)
	if err != nil {
		err = fmt.Errorf("queue %d: %w", queue, err)
	}
	return
}

// Binds socket to queue, replacing any previous binding
func (filter *Filter) BindQueue(queue int, socket Socket) (err error) {
	if queue < 0 {
		err = fmt.Errorf("%w: %d", ErrInvalidQueue, queue)
		return
	}
	if socket == nil {
		err = fmt.Errorf("queue %d: socket must not be nil", queue)
		return
	}

	filter.writeMu.Lock()
	defer filter.writeMu.Unlock()

	next := filter.cloneBindings()
	next[queue] = socket
	filter.bindings.Store(&next)
	return
}

// Removes the binding for queue, returning the socket that was bound
func (filter *Filter) UnbindQueue(queue int) (socket Socket, existed bool) {
	filter.writeMu.Lock()
	defer filter.writeMu.Unlock()

	socket, existed = (*filter.bindings.Load())[queue]
	if !existed {
		return
	}
	next := filter.cloneBindings()
	delete(next, queue)
	filter.bindings.Store(&next)
	return
}

// Currently bound queue ids
func (filter *Filter) Queues() (queues []int) {
	for queue := range *filter.bindings.Load() {
		queues = append(queues, queue)
	}
	return
}

// Configured port gate, 0 when disabled
func (filter *Filter) Port() (port uint16) {
	port = filter.port
	return
}

func (filter *Filter) cloneBindings() (next map[int]Socket) {
	old := *filter.bindings.Load()
	next = make(map[int]Socket, len(old)+1)
	for queue, socket := range old {
		next[queue] = socket
	}
	return
}
