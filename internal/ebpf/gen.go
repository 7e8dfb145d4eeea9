package ebpf

//go:generate clang -O2 -g -Wall -target bpf -c bpf/relay.c -o bpf/relay.o
