package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/focusforge-dev/focusforge/pkg/engine"
	"github.com/focusforge-dev/focusforge/pkg/session"
)

func printView(w io.Writer, v engine.View) {
	if w == nil {
		w = os.Stdout
	}

	switch v.SessionState {
	case session.Running:
		fmt.Fprintf(w, "session: running, %s remaining\n", v.SessionRemaining.Round(time.Second))
	default:
		fmt.Fprintf(w, "session: %s\n", v.SessionState)
	}

	fmt.Fprintf(w, "level %d  (%d/%d xp)\n", v.Level, v.XP, v.XPToNextLevel)
	fmt.Fprintf(w, "coins: %d", v.Balance)
	if v.XPMultiplier > 1.0 || v.CurrencyMultiplier > 1.0 {
		fmt.Fprintf(w, "  (boosts: xp x%.2f, coins x%.2f)", v.XPMultiplier, v.CurrencyMultiplier)
	}
	fmt.Fprintln(w)

	if v.DailyStreak > 0 {
		fmt.Fprintf(w, "streak: %d days (last study %s)\n", v.DailyStreak, v.LastStudyDate)
	}

	for _, r := range v.Resources {
		if r.Maturing {
			fmt.Fprintf(w, "resource %s (%s): maturing %.0f%%\n", r.ID, r.Tier, r.MaturityFraction*100)
		} else {
			fmt.Fprintf(w, "resource %s (%s): ready to mine, pays %d\n", r.ID, r.Tier, r.Payout)
		}
	}

	if v.PendingPushes > 0 {
		fmt.Fprintf(w, "pending remote pushes: %d\n", v.PendingPushes)
	}
}
