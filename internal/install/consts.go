package install

import "fastrelay/internal/global"

const (
	DefaultBinaryPath string = "/usr/local/bin/fastrelay"
	DefaultConfigPath string = global.DefaultConfigPath
	unitFilePath      string = "/etc/systemd/system/fastrelay.service"
	unitName          string = "fastrelay.service"
)

// Relay needs raw sockets (userspace) or bpf and net admin (kernel mode)
const unitTemplate string = `[Unit]
Description=FastRelay chain-relay broadcast dataplane
After=network-online.target
Wants=network-online.target

[Service]
Type=notify
ExecStart=$executableFilePath relay --config $configFilePath
ExecReload=/bin/kill -HUP $MAINPID
Restart=on-failure
AmbientCapabilities=CAP_NET_RAW CAP_NET_ADMIN CAP_BPF CAP_SYS_ADMIN
NoNewPrivileges=yes

[Install]
WantedBy=multi-user.target
`
