package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hesapp/extractor/cmd/banks"
	"hesapp/extractor/cmd/detect"
	"hesapp/extractor/cmd/process"
	"hesapp/extractor/cmd/root"
	"hesapp/extractor/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func init() {
	// Load environment variables silently first, then configure the global
	// log level before any logger is created.
	loadEnvSilently()
	logging.SetAllLogLevels(configureLogLevel())

	root.Init()
	root.Cmd.AddCommand(process.Cmd)
	root.Cmd.AddCommand(banks.Cmd)
	root.Cmd.AddCommand(detect.Cmd)
}

// loadEnvSilently loads a .env file from the working directory or the parent,
// without logging anything.
func loadEnvSilently() {
	envFile := ".env"
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		envFile = filepath.Join("..", ".env")
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			return
		}
	}
	_ = godotenv.Load(envFile)
}

func configureLogLevel() logrus.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	level, err := logrus.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	return level
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
