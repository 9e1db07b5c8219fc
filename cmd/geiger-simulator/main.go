package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	grpccontroller "github.com/chrissnell/radmon/internal/controllers/grpc"
	"github.com/chrissnell/radmon/internal/log"
)

func main() {
	var (
		port       = flag.String("port", "8124", "TCP port to listen on")
		interval   = flag.Duration("interval", time.Second, "Interval between readings")
		alphaMean  = flag.Float64("alpha", 0.2, "Mean alpha particles per reading")
		betaMean   = flag.Float64("beta", 1.5, "Mean beta particles per reading")
		gammaMean  = flag.Float64("gamma", 4, "Mean gamma particles per reading")
		grpcTarget = flag.String("grpc-target", "", "Push readings to this radmon gRPC address instead of listening")
		grpcTLS    = flag.Bool("grpc-tls", false, "Use TLS (system roots) for -grpc-target")
		closeEvery = flag.Duration("close-every", 0, "With -grpc-target, close the server's window on this period")
		follow     = flag.Bool("follow", false, "With -grpc-target, log every sample the server reports")
		debug      = flag.Bool("debug", false, "Turn on debugging output")
	)
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *grpcTarget != "" {
		creds := insecure.NewCredentials()
		if *grpcTLS {
			creds = credentials.NewClientTLSFromCert(nil, "")
		}
		conn, err := grpc.NewClient(*grpcTarget, grpc.WithTransportCredentials(creds))
		if err != nil {
			log.Fatalf("Failed to create gRPC client: %v", err)
		}
		defer conn.Close()
		client := grpccontroller.NewClient(conn)

		log.Infow("Geiger counter simulator pushing over gRPC",
			"target", *grpcTarget, "interval", *interval, "close_every", *closeEvery,
			"alpha", *alphaMean, "beta", *betaMean, "gamma", *gammaMean)

		var wg sync.WaitGroup
		if *follow {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := Follow(ctx, client, log.Named("follow")); err != nil {
					log.Errorf("live sample stream ended: %v", err)
				}
			}()
		}

		p := &Pusher{
			Client:     client,
			Interval:   *interval,
			CloseEvery: *closeEvery,
			AlphaMean:  *alphaMean,
			BetaMean:   *betaMean,
			GammaMean:  *gammaMean,
			Logger:     log.Named("geiger-simulator"),
		}
		p.Run(ctx)
		wg.Wait()
		return
	}

	listener, err := net.Listen("tcp", ":"+*port)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	log.Infow("Geiger counter simulator listening",
		"port", *port, "interval", *interval,
		"alpha", *alphaMean, "beta", *betaMean, "gamma", *gammaMean)

	srv := &Server{
		Interval:  *interval,
		AlphaMean: *alphaMean,
		BetaMean:  *betaMean,
		GammaMean: *gammaMean,
		Logger:    log.Named("geiger-simulator"),
	}
	srv.Serve(ctx, listener)
}
