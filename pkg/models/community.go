package models

// Community is the dashboard's active community, the anchor of every settings screen
type Community struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	AvatarURL string     `json:"avatarURL,omitempty"`
	Platforms []Platform `json:"platforms,omitempty"`
}

// PatchCommunityRequest is the body of PATCH /communities/{id}
type PatchCommunityRequest struct {
	Name string `json:"name"`
}
