package platforms

import (
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/expressions"
	"github.com/Ramsey-B/clover/pkg/models"
)

// mediaWikiLabelLength is the visible length of a wiki's host in the selector
const mediaWikiLabelLength = 15

type displayRule struct {
	// avatar is a template rendered against the platform, label a JMESPath expression
	avatar string
	label  string
	// transform post-processes the label
	transform func(string) string
}

var displayRules = map[models.PlatformName]displayRule{
	models.PlatformDiscord: {
		avatar: "{{ cdn }}icons/{{ metadata.id }}/{{ metadata.icon }}",
		label:  "metadata.name",
	},
	models.PlatformGithub: {
		avatar: "{{ metadata.account.avatarUrl }}",
		label:  "metadata.account.login",
	},
	models.PlatformGoogle: {
		avatar: "{{ metadata.picture }}",
		label:  "metadata.name",
	},
	models.PlatformNotion: {
		avatar: "{{ metadata.owner.user.avatar_url }}",
		label:  "metadata.owner.user.name",
	},
	models.PlatformMediaWiki: {
		label: "metadata.baseURL",
		transform: func(baseURL string) string {
			return TruncateCenter(strings.Replace(baseURL, "https://", "", 1), mediaWikiLabelLength)
		},
	},
}

// Displayer resolves the avatar and label shown for a connected platform
type Displayer struct {
	evaluator  *expressions.Evaluator
	template   *expressions.Template
	discordCDN string
	logger     ectologger.Logger
}

func NewDisplayer(evaluator *expressions.Evaluator, discordCDN string, logger ectologger.Logger) *Displayer {
	return &Displayer{
		evaluator:  evaluator,
		template:   expressions.NewTemplate(evaluator),
		discordCDN: discordCDN,
		logger:     logger,
	}
}

// Display never fails: missing metadata renders as an empty avatar or label
func (d *Displayer) Display(platform models.Platform) models.PlatformDisplay {
	out := models.PlatformDisplay{Platform: platform}

	rule, ok := displayRules[platform.Name]
	if !ok {
		return out
	}

	data := map[string]any{
		"cdn":      d.discordCDN,
		"id":       platform.ID,
		"metadata": platform.Metadata,
	}

	if rule.avatar != "" && d.hasAvatarFields(rule.avatar, data) {
		avatar, err := d.template.Render(rule.avatar, data)
		if err != nil {
			d.logger.WithError(err).WithField("platform", platform.ID).Warn("failed to render platform avatar")
		} else {
			out.AvatarURL = avatar
		}
	}

	label, err := d.evaluator.EvaluateString(rule.label, data)
	if err != nil {
		d.logger.WithError(err).WithField("platform", platform.ID).Warn("failed to resolve platform label")
	}
	if rule.transform != nil {
		label = rule.transform(label)
	}
	out.Label = label

	return out
}

// DisplayAll keeps the input order
func (d *Displayer) DisplayAll(platforms []models.Platform) []models.PlatformDisplay {
	out := make([]models.PlatformDisplay, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, d.Display(p))
	}
	return out
}

// hasAvatarFields reports whether every metadata placeholder of the avatar template resolves.
// A half-rendered CDN URL is worse than no avatar.
func (d *Displayer) hasAvatarFields(template string, data map[string]any) bool {
	for _, field := range expressions.Placeholders(template) {
		if !strings.HasPrefix(field, "metadata.") {
			continue
		}
		value, err := d.evaluator.EvaluateString(field, data)
		if err != nil || value == "" {
			return false
		}
	}
	return true
}

// TruncateCenter keeps the start and end of s and replaces the middle with "..."
// when s is longer than max characters.
func TruncateCenter(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	front := max / 2
	back := max - front
	return string(runes[:front]) + "..." + string(runes[len(runes)-back:])
}
