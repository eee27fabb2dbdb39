package main

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/config"
	"github.com/go-i2p/go-rns/lib/control"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/monitor"
	"github.com/go-i2p/go-rns/lib/reticulum"
	"github.com/go-i2p/go-rns/lib/util"
	"github.com/go-i2p/go-rns/lib/util/signals"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 5 * time.Second

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the node and print every watched announce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), cmd.OutOrStdout(), false)
		},
	}
}

func newMonitorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run the node with a live view of watched announces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd.Context(), cmd.OutOrStdout(), true)
		},
	}
}

// consoleAnnounces prints each announce as one line to out.
func consoleAnnounces(out io.Writer) reticulum.AnnounceFunc {
	return func(aspect string, destinationHash data.Hash, announced *identity.Identity, appData, _ []byte, isPathResponse bool) error {
		_, err := fmt.Fprintln(out, monitor.Format(monitor.NewEvent(aspect, destinationHash, announced, appData, isPathResponse)))
		return err
	}
}

func loadConfig() (*config.ReticulumConfig, error) {
	if err := config.InitConfig(); err != nil {
		return nil, err
	}
	cfg := config.NewReticulumConfigFromViper()
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reloadWatched rereads the configuration file and applies its handler
// filters. Everything else needs a restart.
func reloadWatched(node *reticulum.Reticulum, onAnnounce reticulum.AnnounceFunc) {
	if err := viper.ReadInConfig(); err != nil {
		log.WithError(err).Error("Could not reload configuration")
		return
	}
	cfg := config.NewReticulumConfigFromViper()
	if err := config.Validate(cfg); err != nil {
		log.WithError(err).Error("Reloaded configuration is invalid, keeping the current one")
		return
	}
	if err := node.WatchAspects(cfg.Announce.Handlers, cfg.Announce.PathResponses, onAnnounce); err != nil {
		log.WithError(err).Error("Could not apply reloaded announce handlers")
		return
	}
	log.WithField("aspects", node.WatchedAspects()).Info("Reloaded announce handlers")
}

func runNode(parent context.Context, out io.Writer, tui bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	node, err := reticulum.New(cfg)
	if err != nil {
		return err
	}
	tr := node.Transport()

	var program *tea.Program
	onAnnounce := consoleAnnounces(out)
	if tui {
		model := monitor.NewModel("go-rns "+tr.Identity().String(), monitor.DefaultHistory, tr.Stats)
		program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithOutput(out))
		onAnnounce = monitor.Forward(program)
	}
	if err := node.WatchAspects(cfg.Announce.Handlers, cfg.Announce.PathResponses, onAnnounce); err != nil {
		return err
	}

	ctl, err := control.NewServer(cfg.Control, tr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	if err := node.Start(ctx); err != nil {
		return err
	}
	util.RegisterCloser(node)
	if err := ctl.Start(); err != nil {
		cancel()
		return joinClose(err)
	}

	go signals.Handle()
	defer signals.StopHandle()
	reload := signals.RegisterReloadHandler(func() { reloadWatched(node, onAnnounce) })
	defer signals.DeregisterReloadHandler(reload)
	persist := signals.RegisterPreShutdownHandler(func() {
		if err := node.Persist(); err != nil {
			log.WithError(err).Warn("Could not persist known destinations before shutdown")
		}
	})
	defer signals.DeregisterPreShutdownHandler(persist)
	interrupt := signals.RegisterInterruptHandler(func() {
		cancel()
		if program != nil {
			program.Quit()
		}
	})
	defer signals.DeregisterInterruptHandler(interrupt)

	log.WithFields(logger.Fields{
		"identity": tr.Identity().HexHash(),
		"aspects":  node.WatchedAspects(),
		"storage":  node.StoragePath(),
	}).Info("go-rns is running")

	if program != nil {
		if _, err := program.Run(); err != nil {
			log.WithError(err).Error("Monitor exited with an error")
		}
		cancel()
	} else {
		<-ctx.Done()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := ctl.Stop(stopCtx); err != nil {
		log.WithError(err).Warn("Control server did not stop cleanly")
	}
	return joinClose(nil)
}

// joinClose closes every registered closer and reports the first error.
func joinClose(err error) error {
	if closeErr := util.CloseAll(); err == nil {
		err = closeErr
	}
	return err
}
