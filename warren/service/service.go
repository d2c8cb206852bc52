package service

import (
	"fmt"

	"github.com/warrenhq/warren/warren/services/agent"
	"github.com/warrenhq/warren/warren/services/compute"
	"github.com/warrenhq/warren/warren/services/controlplane"
)

type Service interface {
	Start() (int, error)
	Stop() error
	Status() (string, error)
	Shutdown() error
	Reload() error
}

func New(btype string, config any) (Service, error) {

	switch btype {
	case "controlplane":
		return controlplane.New(config)

	case "compute":
		return compute.New(config)

	case "agent":
		return agent.New(config)

	}

	return nil, fmt.Errorf("unknown service type: %s", btype)
}
