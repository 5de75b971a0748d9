package tournamenthandlers

import (
	"context"
	"fmt"
	"slices"
	"strings"

	chatevents "github.com/Black-And-White-Club/tourney-bot/app/events/chat"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
)

// authority is what a caller must hold before a command runs.
type authority int

const (
	authNone authority = iota
	authOrganiser
	authHost
	authPlayer
)

// invocation is one parsed command message.
type invocation struct {
	msg  *chatevents.MessageCreatedPayloadV1
	name string
	args []string
}

func (inv *invocation) id() tournamentdomain.TournamentID {
	return tournamentdomain.TournamentID(inv.args[0])
}

func (inv *invocation) arg(i int) string {
	if i < len(inv.args) {
		return inv.args[i]
	}
	return ""
}

func (inv *invocation) author() tournamentdomain.DiscordID {
	return tournamentdomain.DiscordID(inv.msg.AuthorID)
}

func (inv *invocation) server() tournamentdomain.ServerID {
	return tournamentdomain.ServerID(inv.msg.ServerID)
}

// mentionedUser is the first user mentioned in the message.
func (inv *invocation) mentionedUser() (tournamentdomain.DiscordID, error) {
	if len(inv.msg.MentionedUsers) == 0 {
		return "", tournamentdomain.NewUserError("Message does not mention a user!")
	}
	return tournamentdomain.DiscordID(inv.msg.MentionedUsers[0]), nil
}

// channel is the first mentioned channel, or the channel the command was sent in.
func (inv *invocation) channel() tournamentdomain.ChannelID {
	if len(inv.msg.ChannelMentions) > 0 {
		return tournamentdomain.ChannelID(inv.msg.ChannelMentions[0])
	}
	return tournamentdomain.ChannelID(inv.msg.ChannelID)
}

type commandFunc func(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error)

type command struct {
	name  string
	usage string
	// required is the number of leading arguments that must be non-empty.
	required int
	auth     authority
	// guildOnly commands are rejected in direct messages.
	guildOnly bool
	run       commandFunc
}

// commandTable is the closed set of commands. The first argument of every
// authority-checked command except list and create is the tournament ID.
func commandTable() map[string]*command {
	cmds := []*command{
		{name: "help", usage: "help", run: cmdHelp},
		{name: "list", usage: "list", auth: authOrganiser, guildOnly: true, run: cmdList},
		{name: "create", usage: "create name|description", required: 2, auth: authOrganiser, guildOnly: true, run: cmdCreate},
		{name: "update", usage: "update id|name|description", required: 3, auth: authHost, run: cmdUpdate},
		{name: "addchannel", usage: "addchannel id|[public/private]|[#channel]", required: 1, auth: authHost, guildOnly: true, run: cmdAddChannel},
		{name: "removechannel", usage: "removechannel id|[public/private]|[#channel]", required: 1, auth: authHost, guildOnly: true, run: cmdRemoveChannel},
		{name: "addhost", usage: "addhost id|@user", required: 1, auth: authHost, run: cmdAddHost},
		{name: "removehost", usage: "removehost id|@user", required: 1, auth: authHost, run: cmdRemoveHost},
		{name: "open", usage: "open id", required: 1, auth: authHost, run: cmdOpen},
		{name: "start", usage: "start id", required: 1, auth: authHost, run: cmdStart},
		{name: "cancel", usage: "cancel id", required: 1, auth: authHost, run: cmdCancel},
		{name: "score", usage: "score id|#-#", required: 2, auth: authPlayer, run: cmdScore},
		{name: "forcescore", usage: "forcescore id|#-#|@player", required: 2, auth: authHost, run: cmdForceScore},
		{name: "round", usage: "round id|[length or skip]", required: 1, auth: authHost, run: cmdRound},
		{name: "players", usage: "players id", required: 1, auth: authHost, run: cmdPlayers},
		{name: "deck", usage: "deck id|@player", required: 1, auth: authHost, run: cmdDeck},
		{name: "drop", usage: "drop id", required: 1, auth: authPlayer, run: cmdDrop},
		{name: "forcedrop", usage: "forcedrop id|@player", required: 1, auth: authHost, run: cmdForceDrop},
		{name: "sync", usage: "sync id", required: 1, auth: authHost, run: cmdSync},
		{name: "pie", usage: "pie id", required: 1, auth: authHost, run: cmdPie},
		{name: "dump", usage: "dump id", required: 1, auth: authHost, run: cmdDump},
		{name: "addbye", usage: "addbye id|@player", required: 1, auth: authHost, run: cmdAddBye},
		{name: "removebye", usage: "removebye id|@player", required: 1, auth: authHost, run: cmdRemoveBye},
	}
	table := make(map[string]*command, len(cmds))
	for _, c := range cmds {
		table[c.name] = c
	}
	return table
}

// parseCommand splits "<prefix>name arg1|arg2" into a command name and trimmed
// arguments. ok is false when content does not start with the prefix.
func parseCommand(prefix, content string) (name string, args []string, ok bool) {
	if !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}
	rest := strings.TrimPrefix(content, prefix)
	name, argText, _ := strings.Cut(rest, " ")
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", nil, false
	}
	argText = strings.TrimSpace(argText)
	if argText == "" {
		return name, nil, true
	}
	for _, a := range strings.Split(argText, "|") {
		args = append(args, strings.TrimSpace(a))
	}
	return name, args, true
}

func validateArgs(args []string, count int) error {
	for i := 0; i < count; i++ {
		if i >= len(args) || args[i] == "" {
			return tournamentdomain.NewUserError("Missing parameter number %d!", i)
		}
	}
	return nil
}

func (h *TournamentHandlers) authorise(ctx context.Context, c *command, inv *invocation) error {
	switch c.auth {
	case authOrganiser:
		return h.service.AuthenticateOrganiser(ctx, inv.server(), inv.author())
	case authHost:
		return h.service.AuthenticateHost(ctx, inv.id(), inv.author())
	case authPlayer:
		return h.service.AuthenticatePlayer(ctx, inv.id(), inv.author())
	}
	return nil
}

func (h *TournamentHandlers) helpText() string {
	names := make([]string, 0, len(h.commands))
	for name := range h.commands {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString("__**Tournament commands**__\n")
	for _, name := range names {
		fmt.Fprintf(&b, "`%s%s`\n", h.prefix, h.commands[name].usage)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
