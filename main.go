package main

import (
	"context"
	"fmt"

	config "PPanel/global/config"
	"PPanel/logger"
	"PPanel/middleware"
	"PPanel/module/account/store"
	"PPanel/module/subscribe"
	"PPanel/service/connlog"
	"PPanel/service/mgo"
	"PPanel/service/pg"
	rediss "PPanel/service/storage/redis"
	security "PPanel/tools/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := config.ConfigAll(ctx); err != nil {
		logger.Error("bootstrap failed", zap.Error(err))
		return
	}

	// —— 连接日志：Mongo 归档 + Redis 近窗口快路径 + NATS 事件 ——
	archive := connlog.NewMongoArchive(mgo.GetDB())
	recent := connlog.NewRedisRecent(rediss.GetRedis(), config.Global.RecentWindow)
	log := connlog.WithEvents(connlog.NewPanelConnLog(recent, archive), "panel.connlog")

	// —— 主库与核心组件 ——
	st := store.NewPgStore(pg.GetPool())
	lifecycle := subscribe.NewLifecycle(st)
	resolver := subscribe.NewResolver(st, log, config.Global.QualityWindow)
	admission := subscribe.NewAdmission(
		subscribe.NewTracker(config.Global.TrackerTTL),
		subscribe.NewTracker(config.Global.TrackerTTL),
		log,
		config.Global.RecentWindow,
	)

	tokenOpts := security.DefaultOptions(config.GetJwtSecret())
	svc := subscribe.NewService(st, lifecycle, resolver, admission, tokenOpts)
	handler := subscribe.NewHandler(svc, subscribe.ListRenderer{})

	r := gin.New()
	r.Use(middleware.Recovery())
	middleware.GET(r, "/sub/:token", handler.Fetch, middleware.RouteOpt{AccessLog: true})

	addr := fmt.Sprintf(":%d", config.Global.Port)
	logger.Infof("subscribe engine listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Error("server exited", zap.Error(err))
	}
}
