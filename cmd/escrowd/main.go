package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"escrow-sol/internal/config"
	"escrow-sol/internal/service"
	"escrow-sol/internal/svc"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/escrowd.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.EscrowConfig
	conf.MustLoad(*configFile, &c)

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	keys, err := c.WatchPubkeys()
	if err != nil {
		panic(err)
	}

	watchService, err := service.NewEscrowWatchService(
		client.NewClient(c.Rpc.Endpoint),
		serviceContext.ProgramID,
		keys,
		c.Watch.Interval(),
		c.Rpc.Timeout(),
		serviceContext.EscrowCache,
	)
	if err != nil {
		panic(err)
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(watchService)

	logx.Infof("Starting escrow watch service, accounts=%d", len(keys))
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()

	// 退出前输出最后一次观察到的托管状态
	for key, obs := range serviceContext.EscrowCache.Snapshot() {
		logx.Infof("escrow=%s initializer=%s expected_amount=%d lamports=%d seen_at=%s",
			key, obs.Record.Initializer, obs.Record.ExpectedAmount, obs.Lamports, obs.SeenAt.Format(time.RFC3339))
	}
}
