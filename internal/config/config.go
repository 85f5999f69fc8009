package config

import (
	"os"
)

type Config struct {
	AppPort           string
	DBDSN             string
	JWTSecret         string
	RedisAddr         string
	RedisPassword     string
	RazorpayKeyID     string
	RazorpayKeySecret string
}

func Load() Config {
	return Config{
		AppPort:           get("APP_PORT", "8080"),
		DBDSN:             must("DB_DSN"),
		JWTSecret:         must("JWT_SECRET"),
		RedisAddr:         get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     get("REDIS_PASSWORD", ""),
		RazorpayKeyID:     get("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret: get("RAZORPAY_KEY_SECRET", ""),
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
