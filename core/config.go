package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	AppName  string
	Build    string
	WorkDir  string

	// SecretKey verifies dashboard tokens; it must match the key the school API
	// signs tokens with at login.
	SecretKey string

	RollbarToken string

	API struct {
		BaseURL string
		Token   string
		Timeout time.Duration
	}

	Server struct {
		Host               string
		Addr               string
		JWTExpirationDelta time.Duration
	}
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("secretKey", "w#0q(t_1pn+bd=%h$k3f&yx@25!vjze7u*8-c4gsm6ro9la)")
	v.SetDefault("apiBaseUrl", "http://localhost:8000/api")
	v.SetDefault("apiTimeout", 30*time.Second)
	v.SetDefault("serverAddr", ":8080")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		WorkDir:      Getwd(),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	Conf.API.BaseURL = strings.TrimRight(v.GetString("apiBaseUrl"), "/")
	Conf.API.Token = v.GetString("apiToken")
	Conf.API.Timeout = v.GetDuration("apiTimeout")
	Conf.Server.Host = v.GetString("serverHost")
	Conf.Server.Addr = v.GetString("serverAddr")
	Conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
}
