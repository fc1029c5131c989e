package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/focusforge-dev/focusforge"
	"github.com/focusforge-dev/focusforge/pkg/engine"
)

var replCommands = []string{
	"start", "stop", "status", "topics", "add-topic", "select-topic",
	"delete-topic", "shop", "buy", "mine", "collect", "reminders",
	"sync", "reset", "help", "quit",
}

func runRepl(ctx context.Context, app *focusforge.App) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) (out []string) {
		for _, c := range replCommands {
			if strings.HasPrefix(c, prefix) {
				out = append(out, c)
			}
		}
		return out
	})

	fmt.Println("focusforge repl; type 'help' for commands")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		input, err := line.Prompt("forge> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		fields := strings.Fields(input)
		cmd, args := fields[0], fields[1:]
		if cmd == "quit" || cmd == "exit" {
			return nil
		}
		dispatch(ctx, app, cmd, args)
	}
}

func dispatch(ctx context.Context, app *focusforge.App, cmd string, args []string) {
	eng := app.Engine()

	switch cmd {
	case "help":
		fmt.Println("commands:", strings.Join(replCommands, ", "))

	case "start":
		minutes := uint64(25)
		if len(args) > 0 {
			m, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				fmt.Println("usage: start [minutes] [topic-id]")
				return
			}
			minutes = m
		}
		topicID := ""
		if len(args) > 1 {
			topicID = args[1]
		}
		if !eng.StartSession(ctx, time.Duration(minutes)*time.Minute, topicID) {
			fmt.Println("could not start: session already running, bad duration, or unknown topic")
			return
		}
		fmt.Printf("session started: %d minutes\n", minutes)

	case "stop":
		if !eng.StopSession(ctx) {
			fmt.Println("no session running")
			return
		}
		fmt.Println("session stopped")

	case "status":
		printView(nil, eng.Snapshot())

	case "topics":
		v := eng.Snapshot()
		if len(v.Topics) == 0 {
			fmt.Println("no topics")
			return
		}
		for _, t := range v.Topics {
			marker := " "
			if t.Selected {
				marker = "*"
			}
			fmt.Printf("%s %s  %s  %d/%d min this week\n", marker, t.ID, t.Name, t.WeeklyMinutes, t.WeeklyGoalMinutes)
		}

	case "add-topic":
		if len(args) < 1 {
			fmt.Println("usage: add-topic <name> [weekly-goal-minutes]")
			return
		}
		var goal uint64
		if len(args) > 1 {
			goal, _ = strconv.ParseUint(args[len(args)-1], 10, 64)
			if goal > 0 {
				args = args[:len(args)-1]
			}
		}
		id, ok := eng.AddTopic(ctx, strings.Join(args, " "), goal)
		if !ok {
			fmt.Println("could not add topic")
			return
		}
		fmt.Println("added", id)

	case "select-topic":
		if len(args) != 1 || !eng.SelectTopic(ctx, args[0]) {
			fmt.Println("usage: select-topic <topic-id>")
			return
		}
		fmt.Println("selected")

	case "delete-topic":
		if len(args) != 1 || !eng.DeleteTopic(ctx, args[0]) {
			fmt.Println("usage: delete-topic <topic-id>")
			return
		}
		fmt.Println("deleted")

	case "shop":
		for _, item := range engine.Catalog {
			fmt.Printf("%-16s %5d coins  %s\n", item.ID, item.Price, item.Name)
		}

	case "buy":
		if len(args) != 1 {
			fmt.Println("usage: buy <item-id>")
			return
		}
		if !eng.Purchase(ctx, args[0]) {
			fmt.Println("purchase failed: unknown item or insufficient coins")
			return
		}
		fmt.Println("purchased")

	case "mine":
		if len(args) != 1 {
			fmt.Println("usage: mine <resource-id>")
			return
		}
		if !eng.StartMining(ctx, args[0]) {
			fmt.Println("could not start mining: unknown resource or slot busy")
			return
		}
		fmt.Println("mining started")

	case "collect":
		if !eng.CollectMaturedResource(ctx) {
			fmt.Println("nothing ready to collect")
			return
		}
		fmt.Println("collected")

	case "reminders":
		if len(args) == 0 {
			fmt.Println(strings.Join(eng.Snapshot().ReminderTimes, " "))
			return
		}
		if !eng.SetReminderTimes(ctx, args) {
			fmt.Println("invalid time; use HH:MM")
			return
		}
		fmt.Println("reminders updated")

	case "sync":
		if err := eng.SyncNow(ctx); err != nil {
			fmt.Println("sync failed:", err)
			return
		}
		fmt.Println("synced")

	case "reset":
		if eng.ResetProgression(ctx) {
			fmt.Println("progression reset")
		}

	default:
		fmt.Printf("unknown command %q; type 'help'\n", cmd)
	}
}
