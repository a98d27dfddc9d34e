package discovery

import (
	"fmt"
	"log"
	"strconv"

	"github.com/hashicorp/consul/api"
)

// ServiceRegistry registers this service with the local Consul agent.
type ServiceRegistry struct {
	client         *api.Client
	serviceName    string
	serviceID      string
	serviceAddress string
	servicePort    string
}

func NewServiceRegistry(consulAddress, serviceName, serviceID, serviceAddress, servicePort string) (*ServiceRegistry, error) {
	config := api.DefaultConfig()
	config.Address = consulAddress

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Consul client: %w", err)
	}

	return &ServiceRegistry{
		client:         client,
		serviceName:    serviceName,
		serviceID:      serviceID,
		serviceAddress: serviceAddress,
		servicePort:    servicePort,
	}, nil
}

// Registration builds the agent registration, including the HTTP health check on /health.
func (sr *ServiceRegistry) Registration() (*api.AgentServiceRegistration, error) {
	port, err := strconv.Atoi(sr.servicePort)
	if err != nil {
		return nil, fmt.Errorf("invalid port: %s: %w", sr.servicePort, err)
	}

	return &api.AgentServiceRegistration{
		ID:      sr.serviceID,
		Name:    sr.serviceName,
		Address: sr.serviceAddress,
		Port:    port,
		Tags:    []string{"academy", "education", "fiber"},
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", sr.serviceAddress, port),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}, nil
}

func (sr *ServiceRegistry) Register() error {
	registration, err := sr.Registration()
	if err != nil {
		return err
	}

	if err := sr.client.Agent().ServiceRegister(registration); err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	log.Printf("Service %s registered with Consul", sr.serviceName)
	return nil
}

func (sr *ServiceRegistry) Deregister() error {
	if err := sr.client.Agent().ServiceDeregister(sr.serviceID); err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}

	log.Printf("Service %s deregistered from Consul", sr.serviceName)
	return nil
}
