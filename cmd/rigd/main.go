package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tunneler/internal/protocol"
	"tunneler/internal/rig/sim"
	"tunneler/internal/transport/ws"
	"tunneler/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		rigID      = flag.String("rig", "rig_1", "rig id reported in the welcome message")
		seed       = flag.Int64("seed", 0, "terrain seed override (0: use tuning)")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[rigd] ", log.LstdFlags|log.Lmicroseconds)

	tn, err := tuning.Load(*tuningPath)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}
	if *seed != 0 {
		tn.Rig.Seed = *seed
	}

	world := sim.New(sim.Config{
		MaxEnergy:      tn.Rig.MaxEnergy,
		MoveCost:       tn.Rig.MoveCost,
		ToolDurability: tn.Rig.ToolDurability,
		Markers:        tn.Rig.Markers,
		CargoSlots:     tn.Rig.CargoSlots,
	})
	sim.Generate(world, tn.Rig.Seed, tn.Rig.Radius)
	logger.Printf("rig %s: seed %d, radius %d", *rigID, tn.Rig.Seed, tn.Rig.Radius)

	rigSrv := ws.NewServer(*rigID, world, sim.Depot{R: world}, protocol.RigParams{
		MaxEnergy:      tn.Rig.MaxEnergy,
		ToolDurability: tn.Rig.ToolDurability,
		Markers:        tn.Rig.Markers,
		CargoSlots:     tn.Rig.CargoSlots,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/rig", rigSrv.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(rw, "ok")
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
