package messenger

type file struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

type request struct {
	ServerID     string `json:"server_id,omitempty"`
	ChannelID    string `json:"channel_id,omitempty"`
	MessageID    string `json:"message_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
	RoleID       string `json:"role_id,omitempty"`
	RoleName     string `json:"role_name,omitempty"`
	Content      string `json:"content,omitempty"`
	Emoji        string `json:"emoji,omitempty"`
	OrganiserFor string `json:"organiser_role,omitempty"`
	File         *file  `json:"file,omitempty"`
}

type reply struct {
	OK        bool   `json:"ok"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	RoleID    string `json:"role_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Exists    bool   `json:"exists,omitempty"`
	Organiser bool   `json:"organiser,omitempty"`
}
