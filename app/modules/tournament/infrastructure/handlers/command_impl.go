package tournamenthandlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tournamentservice "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/application"
	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/tourney-bot/app/utils/handlerwrapper"
)

func one(r handlerwrapper.Result) []handlerwrapper.Result {
	return []handlerwrapper.Result{r}
}

func cmdHelp(_ context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	return one(reply(inv.msg, h.helpText())), nil
}

func cmdList(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	list, err := h.service.ListTournaments(ctx, inv.server())
	if err != nil {
		return nil, err
	}
	if list == "" {
		return one(reply(inv.msg, "There are no active tournaments in this server.")), nil
	}
	return one(reply(inv.msg, "```\n"+list+"```")), nil
}

func cmdCreate(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	name, desc := inv.arg(0), inv.arg(1)
	res, err := h.service.CreateTournament(ctx, inv.author(), inv.server(), name, desc)
	if err != nil {
		return nil, err
	}
	return []handlerwrapper.Result{
		reply(inv.msg, fmt.Sprintf("Tournament %s created! You can find it at %s. For future commands, refer to this tournament by the id `%s`.", name, res.URL, res.ID)),
		reply(inv.msg, res.Guide),
	}, nil
}

func cmdUpdate(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	name, desc := inv.arg(1), inv.arg(2)
	if err := h.service.UpdateTournament(ctx, inv.id(), name, desc); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Tournament `%s` updated! It now has the name %s and the given description.", inv.id(), name))), nil
}

func channelTarget(inv *invocation) (tournamentdomain.ChannelID, tournamentdomain.ChannelKind, string) {
	kind := tournamentdomain.ParseChannelKind(strings.ToLower(inv.arg(1)))
	channel := inv.channel()
	label := "This channel"
	if string(channel) != inv.msg.ChannelID {
		label = tournamentdomain.MentionChannel(channel)
	}
	return channel, kind, label
}

func cmdAddChannel(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	channel, kind, label := channelTarget(inv)
	if err := h.service.AddChannel(ctx, inv.id(), channel, kind); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("%s added as a %s announcement channel for Tournament %s!", label, kind, inv.id()))), nil
}

func cmdRemoveChannel(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	channel, kind, label := channelTarget(inv)
	if err := h.service.RemoveChannel(ctx, inv.id(), channel, kind); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("%s removed as a %s announcement channel for Tournament %s!", label, kind, inv.id()))), nil
}

func cmdAddHost(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	user, err := inv.mentionedUser()
	if err != nil {
		return nil, err
	}
	if err := h.service.AddHost(ctx, inv.id(), user); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("%s added as a host for Tournament %s!", tournamentdomain.MentionUser(user), inv.id()))), nil
}

func cmdRemoveHost(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	user, err := inv.mentionedUser()
	if err != nil {
		return nil, err
	}
	if err := h.service.RemoveHost(ctx, inv.id(), user); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("%s removed as a host for Tournament %s!", tournamentdomain.MentionUser(user), inv.id()))), nil
}

func cmdOpen(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	if err := h.service.OpenTournament(ctx, inv.id()); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Tournament %s opened for registration!", inv.id()))), nil
}

func cmdStart(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	if err := h.service.StartTournament(ctx, inv.id()); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Tournament %s successfully commenced!", inv.id()))), nil
}

func cmdCancel(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	if err := h.service.CancelTournament(ctx, inv.id()); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Tournament %s successfully canceled.", inv.id()))), nil
}

// parseScore reads "#-#" into the reporter's and the opponent's score.
func parseScore(s string) (int, int, error) {
	bad := tournamentdomain.NewUserError("Must provide score in format `#-#` e.g. `2-1`.")
	a, b, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, bad
	}
	own, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil || own < 0 {
		return 0, 0, bad
	}
	opp, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil || opp < 0 {
		return 0, 0, bad
	}
	return own, opp, nil
}

func cmdScore(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	own, opp, err := parseScore(inv.arg(1))
	if err != nil {
		return nil, err
	}
	response, err := h.service.SubmitScore(ctx, inv.id(), inv.author(), own, opp, false)
	if err != nil {
		return nil, err
	}
	return one(reply(inv.msg, response)), nil
}

func cmdForceScore(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	own, opp, err := parseScore(inv.arg(1))
	if err != nil {
		return nil, err
	}
	player, err := inv.mentionedUser()
	if err != nil {
		return nil, err
	}
	if _, err := h.service.SubmitScore(ctx, inv.id(), player, own, opp, true); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Score of %d-%d submitted for %s in Tournament %s.", own, opp, tournamentdomain.MentionUser(player), inv.id()))), nil
}

func cmdRound(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	skip := strings.EqualFold(inv.arg(1), "skip")
	var length time.Duration
	if !skip {
		d, err := parseRoundLength(inv.arg(1), h.now())
		if err != nil {
			return nil, err
		}
		length = d
	}
	res, err := h.service.NextRound(ctx, inv.id(), skip, length)
	if err != nil {
		return nil, err
	}
	if res.Completed {
		return one(reply(inv.msg, fmt.Sprintf("Tournament %s successfully progressed past final round and completed.", inv.id()))), nil
	}
	return one(reply(inv.msg, fmt.Sprintf("Tournament %s successfully progressed to round %d.", inv.id(), res.Round))), nil
}

func cmdPlayers(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	file, err := h.service.ListPlayers(ctx, inv.id())
	if err != nil {
		return nil, err
	}
	return one(replyWithFile(inv.msg, fmt.Sprintf("A list of players for tournament %s with the theme of their deck is attached.", inv.id()), file)), nil
}

func cmdDeck(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	player, err := inv.mentionedUser()
	if err != nil {
		return nil, err
	}
	d, err := h.service.GetPlayerDeck(ctx, inv.id(), player)
	if err != nil {
		return nil, err
	}
	content, file := d.PrettyPrint(string(player) + ".ydk")
	return one(replyWithFile(inv.msg, content, tournamentdomain.Attachment{Filename: file.Filename, Content: file.Content})), nil
}

func cmdDrop(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	if err := h.service.DropPlayer(ctx, inv.id(), inv.author(), false); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Player %s, you have successfully dropped from Tournament %s.", tournamentdomain.MentionUser(inv.author()), inv.id()))), nil
}

func cmdForceDrop(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	player, err := inv.mentionedUser()
	if err != nil {
		return nil, err
	}
	if err := h.service.DropPlayer(ctx, inv.id(), player, true); err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Player %s successfully dropped from Tournament %s.", tournamentdomain.MentionUser(player), inv.id()))), nil
}

func cmdSync(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	res, err := h.service.SyncTournament(ctx, inv.id())
	if err != nil {
		return nil, err
	}
	content := fmt.Sprintf("Tournament %s database successfully synchronised with remote website.", inv.id())
	if len(res.Cleared) > 0 {
		content += "\nCleared interrupted operations: " + tournamentservice.DescribeIntents(res.Cleared)
	}
	return one(reply(inv.msg, content)), nil
}

func cmdPie(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	file, err := h.service.PieChart(ctx, inv.id())
	if err != nil {
		return nil, err
	}
	return one(replyWithFile(inv.msg, fmt.Sprintf("Archetype counts for Tournament %s are attached.", inv.id()), file)), nil
}

func cmdDump(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	file, err := h.service.DeckDump(ctx, inv.id())
	if err != nil {
		return nil, err
	}
	return one(replyWithFile(inv.msg, fmt.Sprintf("Deck lists for Tournament %s are attached.", inv.id()), file)), nil
}

func mentionAll(ids []tournamentdomain.DiscordID) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = tournamentdomain.MentionUser(id)
	}
	return strings.Join(out, ", ")
}

func cmdAddBye(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	player, err := inv.mentionedUser()
	if err != nil {
		return nil, err
	}
	byes, err := h.service.RegisterBye(ctx, inv.id(), player)
	if err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Bye registered for Player %s in Tournament %s!\nAll byes: %s", tournamentdomain.MentionUser(player), inv.id(), mentionAll(byes)))), nil
}

func cmdRemoveBye(ctx context.Context, h *TournamentHandlers, inv *invocation) ([]handlerwrapper.Result, error) {
	player, err := inv.mentionedUser()
	if err != nil {
		return nil, err
	}
	byes, err := h.service.RemoveBye(ctx, inv.id(), player)
	if err != nil {
		return nil, err
	}
	return one(reply(inv.msg, fmt.Sprintf("Bye removed for Player %s in Tournament %s!\nAll byes: %s", tournamentdomain.MentionUser(player), inv.id(), mentionAll(byes)))), nil
}
