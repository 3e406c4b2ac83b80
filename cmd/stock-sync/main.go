// stock-sync mantenimiento del cache de stock por outlet.
//
//	-mode=resync           recalcula el cache desde los lotes vendibles (idempotente)
//	-mode=migrate-batches  crea un lote inicial para cada variación con stock y sin lotes
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/Inventario-pos/internal/application/notification"
	"github.com/jhoicas/Inventario-pos/internal/bootstrap"
	"github.com/jhoicas/Inventario-pos/pkg/config"
	"github.com/jhoicas/Inventario-pos/pkg/logger"
)

const (
	modeResync         = "resync"
	modeMigrateBatches = "migrate-batches"
)

func main() {
	mode := flag.String("mode", modeResync, "resync | migrate-batches")
	tenantID := flag.Int64("tenant", 0, "Opcional: solo este tenant (0 = todos)")
	expiryDays := flag.Int("expiry-days", 365, "Vencimiento en días de los lotes iniciales (migrate-batches)")
	parallel := flag.Int("parallel", 2, "Tenants procesados en paralelo")
	flag.Parse()

	if *mode != modeResync && *mode != modeMigrateBatches {
		fmt.Fprintf(os.Stderr, "-mode inválido: %q\n", *mode)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "stock-sync"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := bootstrap.OpenStorage(ctx, cfg, log.Component("storage"))
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento")
	}
	defer storage.Close()

	coord, err := bootstrap.OpenCoordination(ctx, cfg.Redis, log.Component("redis"))
	if err != nil {
		log.Fatal().Err(err).Msg("coordinación")
	}
	defer coord.Close()

	notifier := notification.NewLogSink(log.Component("notifications"))
	svc := bootstrap.NewServices(storage, coord, notifier, cfg.Reorder, log.Zerolog())
	// Las correcciones del cache pasan por el detector igual que cualquier escritura de stock.
	svc.Dispatcher.Start(ctx)

	tenants := []int64{*tenantID}
	if *tenantID <= 0 {
		if tenants, err = storage.Tenants.ListTenantIDs(ctx); err != nil {
			log.Fatal().Err(err).Msg("listar tenants")
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*parallel, 1))
	for _, id := range tenants {
		g.Go(func() error {
			start := time.Now()
			switch *mode {
			case modeResync:
				out, err := svc.Stock.ResyncAll(gctx, id)
				if err != nil {
					return fmt.Errorf("tenant %d: %w", id, err)
				}
				log.Info().Int64("tenant_id", id).Int("processed", out.Processed).Int("changed", out.Changed).
					Dur("elapsed", time.Since(start)).Msg("resync terminado")
			case modeMigrateBatches:
				rep, err := svc.Stock.MigrateInitialBatches(gctx, id, *expiryDays)
				if err != nil {
					return fmt.Errorf("tenant %d: %w", id, err)
				}
				log.Info().Int64("tenant_id", id).Int("candidates", rep.Candidates).Int("created", rep.Created).
					Int("skipped", rep.Skipped).Dur("elapsed", time.Since(start)).Msg("migración de lotes terminada")
			}
			return nil
		})
	}
	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Reorder.JobTimeout+5*time.Second)
	defer cancel()
	if err := svc.Dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del detector de stock bajo")
	}

	if runErr != nil {
		log.Error().Err(runErr).Str("mode", *mode).Msg("stock-sync falló")
		os.Exit(1)
	}
	log.Info().Str("mode", *mode).Int("tenants", len(tenants)).Msg("stock-sync terminado")
}
