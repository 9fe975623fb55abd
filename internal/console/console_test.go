package console

import (
	"bufio"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/volcanomonitor/pkg/config"
)

func TestOpenDefaultsToStdio(t *testing.T) {
	rwc, err := Open(context.Background(), config.ConsoleData{})
	require.NoError(t, err)
	assert.NoError(t, rwc.Close())
}

func TestOpenRequiresHostAndPort(t *testing.T) {
	_, err := Open(context.Background(), config.ConsoleData{Hostname: "localhost"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.ConsoleData{Port: "7000"})
	assert.Error(t, err)
}

func TestOpenSerialMissingDevice(t *testing.T) {
	_, err := Open(context.Background(), config.ConsoleData{SerialDevice: "/dev/does-not-exist-volcano"})
	assert.Error(t, err)
}

func TestOpenNetwork(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	accepted := make(chan string, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		line, _ := bufio.NewReader(c).ReadString('\n')
		accepted <- line
	}()

	host, port, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)

	rwc, err := Open(context.Background(), config.ConsoleData{Hostname: host, Port: port})
	require.NoError(t, err)
	defer rwc.Close()

	_, err = rwc.Write([]byte("dump\n"))
	require.NoError(t, err)
	assert.Equal(t, "dump\n", <-accepted)
}
