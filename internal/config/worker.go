package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

type WorkerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	LogLevel      string
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("worker.stream", "ridedesk:tasks")
	v.SetDefault("worker.group", "ridedesk-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.loglevel", "info")
}
