package services

import (
	"rlhf_platform/run_bazaar/orchestrator"
)

type DockerRegistry struct {
	Registry       string
	DockerUsername string
	DockerPassword string
}

type Variables struct {
	BackendDriver orchestrator.Driver

	DockerRegistry DockerRegistry

	ShareDir         string
	PlatformEndpoint string

	WandbApiKey string

	CloudCredentials orchestrator.CloudCredentials

	IsLocal bool
}

func (vars *Variables) DockerEnv() orchestrator.DockerEnv {
	return orchestrator.DockerEnv{
		Registry:       vars.DockerRegistry.Registry,
		DockerUsername: vars.DockerRegistry.DockerUsername,
		DockerPassword: vars.DockerRegistry.DockerPassword,
		ShareDir:       vars.ShareDir,
	}
}
