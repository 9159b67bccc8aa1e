package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pigeonchat/pigeon/internal/app"
	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/presence"
	"github.com/pigeonchat/pigeon/internal/roster"
	"github.com/pigeonchat/pigeon/internal/session"
	"github.com/pigeonchat/pigeon/internal/status"
	"github.com/pigeonchat/pigeon/internal/store"
	intsync "github.com/pigeonchat/pigeon/internal/sync"
	"github.com/pigeonchat/pigeon/internal/tui"
	"github.com/pigeonchat/pigeon/internal/tui/model"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the sync engine and open the terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := resolveProfile()
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := session.LoadToken(profile)
		if err != nil {
			return err
		}
		if token == "" {
			return fmt.Errorf("profile %q is not logged in; run `pigeon login` first", profile)
		}

		var deps struct {
			fx.In

			Coordinator *intsync.Coordinator
			Store       *store.Store
			Presence    *presence.Tracker
			Roster      *roster.Roster
			Machine     *status.Machine
			Bus         *bus.Bus
		}

		engine := fx.New(
			app.Module(app.Params{Profile: profile, Config: cfg}),
			fx.Populate(&deps),
			fx.NopLogger,
		)

		startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := engine.Start(startCtx); err != nil {
			return err
		}

		vm := model.NewViewModel(deps.Coordinator, deps.Store, deps.Presence, deps.Roster, deps.Machine, deps.Bus)
		ui := tui.NewApp(vm, profile)
		runErr := ui.Run()
		ui.Stop()

		stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelStop()
		if err := engine.Stop(stopCtx); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	},
}
