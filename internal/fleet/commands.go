package fleet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/groblegark/stayput/internal/schedule"
	"github.com/groblegark/stayput/internal/tool"
)

// HandleChat is the chat-command router. It runs for every chat line
// the primary session sees, parses lines carrying the command prefix,
// and sends exactly one reply (help is the multi-line exception) back
// through the session that received the command.
func (m *Manager) HandleChat(sender, text string) {
	// The primary session's own outbound messages echo back; never
	// parse them as commands.
	if key(sender) == m.primaryKey {
		return
	}

	line := strings.TrimSpace(text)
	if !strings.HasPrefix(line, m.cfg.CommandPrefix) {
		return
	}
	reply := m.dispatch(sender, strings.TrimPrefix(line, m.cfg.CommandPrefix))
	if reply == "" {
		return
	}

	m.mu.Lock()
	st := m.sessions[m.primaryKey]
	m.mu.Unlock()
	if st == nil {
		return
	}
	sess := st.session()
	if sess == nil {
		return
	}
	for _, msg := range strings.Split(reply, "\n") {
		sess.SendChat(msg)
	}
}

func (m *Manager) dispatch(sender, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case "help":
		return m.helpText()
	case "spawn", "spawnbot":
		return m.cmdSpawn(sender)
	case "disconnect":
		return m.cmdDisconnect(sender, optionalName(args))
	case "farm-start":
		return m.cmdFarmStart(sender, optionalName(args))
	case "farm-stop":
		return m.cmdFarmStop(sender, optionalName(args))
	case "attack-start":
		return m.cmdAttackStart(sender, optionalName(args))
	case "attack-stop":
		return m.cmdAttackStop(sender, optionalName(args))
	case "schedule", "schedule-bot":
		return m.cmdSchedule(sender, args)
	default:
		return ""
	}
}

func optionalName(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (m *Manager) helpText() string {
	p := m.cfg.CommandPrefix
	return strings.Join([]string{
		p + "spawn -> creates your bot (max 1 each, " + fmt.Sprint(len(m.cfg.Slots)) + " total).",
		p + "disconnect [name] -> disconnects your bot and frees the slot. Bots stay put and reconnect on their own.",
		p + "farm-start [name] -> your bot digs the block you are looking at, on loop.",
		p + "farm-stop [name] -> stops the auto-break loop.",
		p + "attack-start [name] -> auto-attacks the nearest mob or player.",
		p + "attack-stop [name] -> stops the auto-attack loop.",
		p + "schedule <hh:mm-hh:mm> [name] or " + p + "schedule-bot <name> <hh:mm-hh:mm> -> the bot joins/leaves at the given server times. Use \"off\" to clear.",
	}, "\n")
}

func (m *Manager) cmdSpawn(sender string) string {
	name, err := m.AssignSlot(sender)
	switch {
	case errors.Is(err, ErrAlreadyAssigned):
		m.mu.Lock()
		held := m.owners[key(sender)]
		m.mu.Unlock()
		return fmt.Sprintf("You already have %s. Use %sdisconnect first.", held, m.cfg.CommandPrefix)
	case errors.Is(err, ErrNoFreeSlot):
		return "Too many bots right now."
	case err != nil:
		return "Cannot create a bot right now."
	}
	return fmt.Sprintf("Creating %s for %s.", name, sender)
}

func (m *Manager) cmdDisconnect(sender, requested string) string {
	name, err := m.ReleaseSlot(sender, requested)
	if err != nil {
		return ownerErrorMessage(err)
	}
	return fmt.Sprintf("Disconnected %s.", name)
}

func (m *Manager) cmdFarmStart(sender, requested string) string {
	name, err := m.StartBreaking(sender, requested)
	if err != nil {
		return ownerErrorMessage(err)
	}
	return fmt.Sprintf("%s is breaking the block in front, on loop.", name)
}

func (m *Manager) cmdFarmStop(sender, requested string) string {
	name, err := m.StopBreaking(sender, requested)
	if err != nil {
		return ownerErrorMessage(err)
	}
	return fmt.Sprintf("%s stopped breaking blocks.", name)
}

func (m *Manager) cmdAttackStart(sender, requested string) string {
	name, err := m.StartAttacking(sender, requested)
	if err != nil {
		return ownerErrorMessage(err)
	}
	return fmt.Sprintf("%s is auto-attacking the nearest target.", name)
}

func (m *Manager) cmdAttackStop(sender, requested string) string {
	name, err := m.StopAttacking(sender, requested)
	if err != nil {
		return ownerErrorMessage(err)
	}
	return fmt.Sprintf("%s stopped attacking.", name)
}

// cmdSchedule accepts both argument orders: range-first with an
// optional slot name after it, and name-first with the range after the
// name. In the name-first form the literal token "schedule" in name
// position means "my own slot".
func (m *Manager) cmdSchedule(sender string, args []string) string {
	usage := fmt.Sprintf("Usage: %sschedule hh:mm-hh:mm [botName] or %sschedule-bot <botName> hh:mm-hh:mm (use \"off\" to clear).",
		m.cfg.CommandPrefix, m.cfg.CommandPrefix)
	if len(args) == 0 {
		return usage
	}

	var requested, rangeText string
	if strings.ContainsAny(args[0], ":-") || key(args[0]) == schedule.Off {
		rangeText = args[0]
		if len(args) > 1 {
			requested = args[1]
		}
	} else {
		requested = args[0]
		if key(requested) == "schedule" {
			requested = ""
		}
		rangeText = strings.Join(args[1:], " ")
	}
	if rangeText == "" {
		return usage
	}

	name, err := m.SetSchedule(sender, requested, rangeText)
	switch {
	case errors.Is(err, schedule.ErrInvalidFormat):
		return "Invalid schedule format. Use hh:mm-hh:mm (e.g. 09:00-15:00)."
	case errors.Is(err, schedule.ErrOutOfRange):
		return "Schedule out of range 00:00-23:59."
	case err != nil:
		return ownerErrorMessage(err)
	}
	if key(rangeText) == schedule.Off {
		return fmt.Sprintf("Schedule cleared for %s; always active.", name)
	}
	return fmt.Sprintf("%s will be online %s (server time).", name, rangeText)
}

// ownerErrorMessage maps the owner-scoped error taxonomy to a single
// deterministic reply line.
func ownerErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoSlotHeld):
		return "You do not have a bot. Use spawn to create one."
	case errors.Is(err, ErrSlotNotFound):
		return "Bot not found."
	case errors.Is(err, ErrNotOwner):
		return "You can only control your own bot."
	case errors.Is(err, ErrSessionNotConnected):
		return "The bot is not connected; trying to reconnect it."
	default:
		return "Cannot do that right now."
	}
}

func outOfToolsMessage(k tool.Kind) string {
	switch k {
	case tool.Pickaxe:
		return "Running out of pickaxes and I have no spares!"
	default:
		return "Running out of axes and I have no spares!"
	}
}

func receivedToolMessage(k tool.Kind) string {
	switch k {
	case tool.Pickaxe:
		return "Got the pickaxe."
	default:
		return "Got the axe."
	}
}
