package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/bot"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/config"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/database"
	"github.com/neionri/HoYo-Code-Sender-Discord-Bot-sub001/internal/logger"
)

func main() {
	config.Load()
	logger.Init(config.Debug)
	defer logger.Sync()

	database.Init()
	defer database.Close()

	bot, err := bot.New()
	if err != nil {
		logger.Fatal("Error creating bot", zap.Error(err))
	}

	err = bot.Start()
	if err != nil {
		logger.Fatal("Error starting bot", zap.Error(err))
	}

	// Wait for a SIGINT or SIGTERM signal
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc

	bot.Stop()
}
