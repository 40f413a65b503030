package service

import (
	"fmt"
	"strings"

	"github.com/nevar-bot/nevar-v6-sub000/internal/domain/message"
	"github.com/nevar-bot/nevar-v6-sub000/internal/features/giveaway/models"
)

func mentions(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "<@" + id + ">"
	}
	return strings.Join(out, ", ")
}

func renderActive(g *models.Giveaway) message.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 **%s**\n", g.Prize)
	fmt.Fprintf(&b, "Ends: <t:%d:R>\n", g.EndAt.Unix())
	fmt.Fprintf(&b, "Hosted by: <@%s>\n", g.HostedBy)
	fmt.Fprintf(&b, "Winners: %d\n", g.WinnerCount)
	fmt.Fprintf(&b, "Entrants: %d", len(g.EntrantIDs))
	if len(g.Requirements) > 0 {
		b.WriteString("\n\n**Requirements**")
		for _, r := range g.Requirements {
			b.WriteString("\n• " + r.Describe())
		}
	}
	b.WriteString("\n\nPress the button below to participate.")
	return message.Message{Content: b.String(), EntryButton: true}
}

func winnerLine(g *models.Giveaway) string {
	switch n := len(g.WinnerIDs); {
	case n == 0:
		return "No winners: nobody eligible entered."
	case n < g.WinnerCount:
		return fmt.Sprintf("Winners (%d of %d): %s", n, g.WinnerCount, mentions(g.WinnerIDs))
	default:
		return "Winners: " + mentions(g.WinnerIDs)
	}
}

func renderEnded(g *models.Giveaway) message.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 **%s**\n", g.Prize)
	fmt.Fprintf(&b, "Ended: <t:%d:R>\n", g.EndAt.Unix())
	fmt.Fprintf(&b, "Hosted by: <@%s>\n", g.HostedBy)
	fmt.Fprintf(&b, "Entrants: %d\n", len(g.EntrantIDs))
	b.WriteString(winnerLine(g))
	return message.Text(b.String())
}

func renderClosed(g *models.Giveaway) message.Message {
	return message.Text(fmt.Sprintf("🎉 **%s**\nThis giveaway was cancelled. No winners were chosen.", g.Prize))
}

func renderAnnouncement(g *models.Giveaway, reroll bool) message.Message {
	n := len(g.WinnerIDs)
	if n == 0 {
		return message.Text(fmt.Sprintf("Nobody eligible entered the giveaway for **%s**, so there are no winners.", g.Prize))
	}
	prefix := "Congratulations"
	if reroll {
		prefix = "New draw! Congratulations"
	}
	content := fmt.Sprintf("%s %s! You won **%s**.", prefix, mentions(g.WinnerIDs), g.Prize)
	if n < g.WinnerCount {
		content += fmt.Sprintf(" Only %d of %d winners could be drawn.", n, g.WinnerCount)
	}
	return message.Text(content)
}
