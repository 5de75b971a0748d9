package tournamentdomain

func MentionUser(id DiscordID) string {
	return "<@" + string(id) + ">"
}

func MentionRole(id RoleID) string {
	return "<@&" + string(id) + ">"
}

func MentionChannel(id ChannelID) string {
	return "<#" + string(id) + ">"
}
