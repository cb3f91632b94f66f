package bus

import (
	"chat-relay/contract"
	"fmt"
	"log/slog"
)

type Driver string

const (
	DriverRedis  Driver = "redis"
	DriverMemory Driver = "memory"
)

// NewGateway builds the gateway selected by the BUS_DRIVER setting.
func NewGateway(log *slog.Logger, driver Driver, url string) (contract.BusGateway, error) {
	var (
		gateway contract.BusGateway
		err     error
	)
	switch driver {
	case DriverRedis:
		gateway, err = NewRedisGateway(log, url)
	case DriverMemory:
		log.Warn("Using the embedded bus, sessions are only relayed inside this process")
		gateway, err = NewEmbeddedGateway(log)
	default:
		return nil, fmt.Errorf("unknown bus driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	return gateway, nil
}
