package servicediscover

import (
	"context"
	"fmt"
	"net"

	"gigbridge-platform/pkg/config"

	"github.com/hashicorp/consul/api"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("servicediscover",
	fx.Provide(NewConfig, NewClient, NewRegistry),
	fx.Invoke(register),
)

type ServiceRegistry interface {
	Register(ctx context.Context) error
	Deregister(ctx context.Context) error
}

func NewConfig(cfg *config.Config) *api.Config {
	c := api.DefaultConfig()
	c.Address = cfg.Consul.Addr

	return c
}

func NewClient(c *api.Config) (*api.Client, error) {
	return api.NewClient(c)
}

type consulRegistry struct {
	client    *api.Client
	serviceID string
	service   *api.AgentServiceRegistration
}

func NewRegistry(client *api.Client, cfg *config.Config) ServiceRegistry {
	host, portStr, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil || host == "" {
		host = "127.0.0.1"
	}

	var port int
	fmt.Sscanf(portStr, "%d", &port)

	serviceID := fmt.Sprintf("%s-%s", cfg.AppName, portStr)

	return &consulRegistry{
		client:    client,
		serviceID: serviceID,
		service: &api.AgentServiceRegistration{
			ID:      serviceID,
			Name:    cfg.AppName,
			Address: host,
			Port:    port,
			Check: &api.AgentServiceCheck{
				HTTP:     fmt.Sprintf("http://%s:%d/health/readiness", host, port),
				Interval: "10s",
				Timeout:  "5s",
			},
		},
	}
}

func (r *consulRegistry) Register(ctx context.Context) error {
	return r.client.Agent().ServiceRegister(r.service)
}

func (r *consulRegistry) Deregister(ctx context.Context) error {
	return r.client.Agent().ServiceDeregister(r.serviceID)
}

func register(lc fx.Lifecycle, cfg *config.Config, registry ServiceRegistry) {
	if !cfg.Consul.Enable {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := registry.Register(ctx); err != nil {
				zap.L().Warn("consul registration failed", zap.Error(err))
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return registry.Deregister(ctx)
		},
	})
}
