package common

import (
	"os"
)

func GetServiceName() string {
	name := os.Getenv("SERVICE_NAME")
	if name == "" {
		return "taskflow"
	}
	return name
}

func GetServiceInstance() string {
	instance := os.Getenv("SERVICE_INSTANCE")
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return "unknown"
		}
		return hostname
	}
	return instance
}
