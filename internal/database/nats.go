package database

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// ConnectNats dials the NATS server used for cross-node activity stream fan-out.
// An empty URL disables the connection; callers must treat a nil *nats.Conn as
// "single node" mode.
func ConnectNats(url, name string) (*nats.Conn, error) {
	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return conn, nil
}
