package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"escrow-sol/internal/config"
	"escrow-sol/internal/logic/dispatcher"
	"escrow-sol/internal/logic/runtime"
	"escrow-sol/internal/logic/state"
	"escrow-sol/internal/scenario"
	"escrow-sol/internal/svc"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

var (
	configFile   = flag.String("f", "etc/simulate.yaml", "the config file")
	scenarioFile = flag.String("s", "", "scenario file, overrides the one in config")
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			os.Exit(2)
		}
	}()

	flag.Parse()

	var c config.EscrowConfig
	conf.MustLoad(*configFile, &c)
	if *scenarioFile != "" {
		c.Scenario = *scenarioFile
	}

	if err := run(c); err != nil {
		fmt.Fprintf(os.Stderr, "simulate failed: %v\n", err)
		os.Exit(1)
	}
}

func run(c config.EscrowConfig) error {
	sc, err := svc.NewServiceContext(c)
	if err != nil {
		return err
	}
	defer sc.Close()

	s, err := scenario.Load(c.Scenario)
	if err != nil {
		return err
	}
	if s.ProgramID != sc.ProgramID {
		return fmt.Errorf("scenario program %s does not match configured program %s", s.ProgramID, sc.ProgramID)
	}

	ctx := context.Background()
	if err := s.Seed(ctx, sc.Store, c.Rent.ToRent()); err != nil {
		return err
	}

	tx := s.Transaction()
	result, err := sc.Runtime.ProcessTransaction(ctx, tx)
	if result != nil {
		for _, line := range result.Logs {
			fmt.Println(line)
		}
	}
	if err != nil {
		var ixErr *runtime.InstructionError
		if errors.As(err, &ixErr) {
			return fmt.Errorf("transaction rolled back: %w", err)
		}
		return err
	}

	escrowKey := s.InitEscrow.EscrowAccount
	record, err := state.Unpack(result.Accounts[escrowKey].Data)
	if err != nil {
		return fmt.Errorf("decode committed escrow: %w", err)
	}
	fmt.Printf("tx %s committed\n", result.ID)
	fmt.Printf("escrow %s (%s)\n", escrowKey, s.AccountName(escrowKey))
	fmt.Printf("  initializer:        %s\n", record.Initializer)
	fmt.Printf("  temp token account: %s\n", record.TempTokenAccount)
	fmt.Printf("  receiving account:  %s\n", record.ReceivingAccount)
	fmt.Printf("  expected amount:    %d\n", record.ExpectedAmount)

	events, err := dispatcher.CollectEscrowEvents(sc.ProgramID, tx, result)
	if err != nil {
		return err
	}
	for _, evt := range events {
		fmt.Printf("  custodian:          %s (bump %d)\n", evt.Custodian, evt.Bump)
	}
	return sc.PublishEscrowEvents(ctx, events)
}
