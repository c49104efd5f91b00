package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hydragrow/pod-telemetry/internal/podsim"
	"github.com/hydragrow/pod-telemetry/pkg/logger"
	"github.com/hydragrow/pod-telemetry/pkg/mqtt"
)

func main() {
	host := flag.String("mqtt-host", "localhost", "broker host")
	port := flag.Int("mqtt-port", 1883, "broker port")
	user := flag.String("mqtt-user", "", "broker user")
	password := flag.String("mqtt-password", "", "broker password")
	pods := flag.Int("pods", 1, "number of simulated pods")
	interval := flag.Duration("interval", 10*time.Second, "publish interval")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logger.New(os.Stdout, logger.ParseLevel(*level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for i := 0; i < *pods; i++ {
		podName := fmt.Sprintf("pod-%02d", i+1)

		client, err := mqtt.Connect(ctx, mqtt.Config{
			Host:     *host,
			Port:     *port,
			User:     *user,
			Password: *password,
			ClientID: "podsim-" + podName,
		}, log)
		if err != nil {
			log.Error("broker connection failed", "pod", podName, "error", err)
			os.Exit(1)
		}

		sim := podsim.New(podName, client, podsim.NewGenerator(int64(i)), log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sim.Start(ctx, *interval); err != nil {
				log.Error("simulator failed", "pod", podName, "error", err)
			}
		}()
		log.Info("pod simulator started", "pod", podName)
	}

	wg.Wait()
	log.Info("stopped")
}
