package tournamenthandlers

import (
	"strconv"
	"strings"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/domain"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var lengthParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseRoundLength accepts Go durations ("40m"), bare minutes ("40") and
// natural language ("40 minutes", "until 7pm"). Empty input means the default.
func parseRoundLength(input string, now time.Time) (time.Duration, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(input); err == nil {
		return checkLength(input, d)
	}
	if mins, err := strconv.Atoi(input); err == nil {
		return checkLength(input, time.Duration(mins)*time.Minute)
	}

	phrase := input
	if !strings.HasPrefix(phrase, "in ") && !strings.HasPrefix(phrase, "at ") && !strings.HasPrefix(phrase, "until ") {
		phrase = "in " + phrase
	}
	phrase = strings.Replace(phrase, "until ", "at ", 1)

	r, err := lengthParser.Parse(phrase, now)
	if err != nil || r == nil {
		return 0, tournamentdomain.NewUserError("Could not understand round length `%s`.", input)
	}
	return checkLength(input, r.Time.Sub(now))
}

func checkLength(input string, d time.Duration) (time.Duration, error) {
	if d <= 0 {
		return 0, tournamentdomain.NewUserError("Round length `%s` must be in the future.", input)
	}
	return d.Round(time.Second), nil
}
