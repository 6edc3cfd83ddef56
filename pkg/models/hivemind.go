package models

// DiscordConfig is the Hivemind configuration for a Discord server
type DiscordConfig struct {
	Learning  DiscordLearning  `json:"learning"`
	Answering DiscordAnswering `json:"answering"`
}

type DiscordLearning struct {
	SelectedChannels []string `json:"selectedChannels" validate:"dive,required"`
	// ISO date the assistant starts learning from, empty until the user picks one
	FromDate string `json:"fromDate" validate:"required"`
}

type DiscordAnswering struct {
	SelectedChannels []string `json:"selectedChannels" validate:"dive,required"`
}

type GithubConfig struct {
	Activated bool `json:"activated"`
}

type NotionConfig struct {
	DatabaseIDs []string `json:"databaseIds" validate:"dive,required"`
	PageIDs     []string `json:"pageIds" validate:"dive,required"`
}

type MediaWikiConfig struct {
	PageIDs []string `json:"pageIds" validate:"dive,required"`
}
