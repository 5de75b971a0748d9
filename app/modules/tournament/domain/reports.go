package tournamentdomain

// PlayerRow is one line of the players report.
type PlayerRow struct {
	Player string
	Theme  string
}

// ThemeCount is one slice of the theme pie chart.
type ThemeCount struct {
	Theme string
	Count int
}

// DeckRow is one player's deck in the deck dump.
type DeckRow struct {
	Player string
	Theme  string
	Main   string
	Extra  string
	Side   string
	URL    string
}
