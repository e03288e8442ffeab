package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"modguard/bot"
	"modguard/store"
	"modguard/utils"
)

// statusHandler reports host load plus engine counters: recorded history
// rows, pending timed actions and dead-lettered actions.
func statusHandler(b *bot.Bot) handlerFunc {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		cpuCount, _ := cpu.Counts(true)
		cpuPercent, _ := cpu.Percent(0, false)
		vm, _ := mem.VirtualMemory()
		hostInfo, _ := host.Info()

		historyRows, _ := store.CountHistoryEntries(b.DB)
		pending, _ := store.CountPendingActions(b.DB)
		deadLetters, _ := store.CountDeadLetters(b.DB)

		var sb strings.Builder
		sb.WriteString("**Moderation Engine Status**\n")
		if hostInfo != nil {
			uptime := time.Duration(hostInfo.Uptime) * time.Second
			fmt.Fprintf(&sb, "Host: %s (%s), up %s\n", hostInfo.Hostname, hostInfo.Platform, uptime)
		}
		if len(cpuPercent) > 0 {
			fmt.Fprintf(&sb, "CPU: %d cores, %.1f%% used\n", cpuCount, cpuPercent[0])
		}
		if vm != nil {
			fmt.Fprintf(&sb, "Memory: %.1f%% of %d MB\n", vm.UsedPercent, vm.Total/1024/1024)
		}
		fmt.Fprintf(&sb, "Goroutines: %d\n", runtime.NumGoroutine())
		fmt.Fprintf(&sb, "History entries: %d\n", historyRows)
		fmt.Fprintf(&sb, "Pending timed actions: %d\n", pending)
		fmt.Fprintf(&sb, "Dead-lettered actions: %d", deadLetters)
		if deadLetters > 0 {
			sb.WriteString(" ⚠️ needs operator attention")
		}

		utils.SendFollowUp(s, i.Interaction, sb.String())
	}
}
