package config

import (
	"os"
	"strconv"
	"time"
)

func envSeconds(key string, defaultSeconds float64) time.Duration {
	return time.Duration(envFloat(key, defaultSeconds) * float64(time.Second))
}

func envFractionalSeconds(key string, defaultSeconds float64) time.Duration {
	return envSeconds(key, defaultSeconds)
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
