package whisper

import (
	"fmt"
	"net"
	"strconv"
)

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	_, p, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func (c Config) pickPort() (int, error) {
	if c.PortStart > 0 && c.PortEnd >= c.PortStart {
		return pickPortInRange(c.Host, c.PortStart, c.PortEnd)
	}
	return pickFreePort(c.Host)
}
