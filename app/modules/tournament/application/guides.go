package tournamentservice

import (
	"fmt"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
)

func createGuide(id tournamentdomain.TournamentID) string {
	return fmt.Sprintf(`__**Setting up Tournament %[1]s**__
Register announcement channels with `+"`mc!addchannel %[1]s|public`"+` or `+"`mc!addchannel %[1]s|private`"+`.
Add co-hosts with `+"`mc!addhost %[1]s|@user`"+`.
When you are ready, open registration with `+"`mc!open %[1]s`"+`.`, id)
}

func openGuide(id tournamentdomain.TournamentID) string {
	return fmt.Sprintf(`__**Registration is open for Tournament %[1]s**__
Players sign up by clicking the ✅ on the registration message and sending me their deck.
You will see each deck here as it is submitted.
Use `+"`mc!players %[1]s`"+` for a list of players and `+"`mc!addbye %[1]s|@user`"+` to give round one byes.
Start with `+"`mc!start %[1]s`"+` once everyone is in.`, id)
}

func startGuide(id tournamentdomain.TournamentID) string {
	return fmt.Sprintf(`__**Tournament %[1]s has started**__
Advance with `+"`mc!round %[1]s`"+` once every match has a score. Give a length like `+"`mc!round %[1]s|40 minutes`"+` for a shorter round.
Fix a result with `+"`mc!forcescore %[1]s|2-1|@winner`"+` and remove a player with `+"`mc!forcedrop %[1]s|@user`"+`.
If the bracket and the bot disagree, run `+"`mc!sync %[1]s`"+`.`, id)
}

func playerGuide(id tournamentdomain.TournamentID) string {
	return fmt.Sprintf(`__**Tournament %[1]s has started!**__
You will receive your opponent for each round by DM.
After your match, report the result with `+"`mc!score %[1]s|2-1`"+` from your own perspective. Your opponent needs to report the same result.
If you need to leave, use `+"`mc!drop %[1]s`"+`.`, id)
}
