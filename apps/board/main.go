package main

import (
	"log"
	"os"

	echoboard "github.com/mzalendo/darasa/apps/board/echo"
	"github.com/mzalendo/darasa/core"
	"github.com/mzalendo/darasa/core/entity"
	"github.com/mzalendo/darasa/core/school"
	apisvc "github.com/mzalendo/darasa/services/api"
	logsvc "github.com/mzalendo/darasa/services/logger"
)

func main() {
	std := log.New(os.Stdout, "BOARD : ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug || core.Conf.RollbarToken == "" {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	client := apisvc.NewClient(core.Conf, logger)
	cache := entity.NewCache(client, logger)
	svc := school.NewService(cache, client, logger)

	app := echoboard.NewServer(&echoboard.Options{
		Addr:      core.Conf.Server.Addr,
		SchoolSvc: svc,
		Logger:    logger,
	})
	app.Start()
}
