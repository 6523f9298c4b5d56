package anf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Role identifies an ANF component kind.
type Role string

const (
	RoleBody                Role = "body"
	RoleQuote               Role = "quote"
	RolePullquote           Role = "pullquote"
	RolePhoto               Role = "photo"
	RoleVideo               Role = "video"
	RoleEmbedWebVideo       Role = "embedwebvideo"
	RoleTweet               Role = "tweet"
	RoleInstagram           Role = "instagram"
	RoleFacebookPost        Role = "facebook_post"
	RoleTikTok              Role = "tiktok"
	RoleDivider             Role = "divider"
	RoleHTMLTable           Role = "htmltable"
	RoleBannerAdvertisement Role = "banner_advertisement"
)

// HeadingRole returns the role of a heading level, heading1 to heading6.
func HeadingRole(level int) Role {
	return Role("heading" + strconv.Itoa(level))
}

// FormatHTML marks text components whose text is HTML. Plain text
// components leave Format empty so it is omitted from the JSON.
const FormatHTML = "html"

// FormatMarkdown marks text components whose text is Markdown.
const FormatMarkdown = "markdown"

// BannerAny is the only banner type emitted for ad placements.
const BannerAny = "any"

// Component is one ANF component. Only the types in this file implement
// it.
type Component interface {
	Role() Role
	isComponent()
}

type Body struct {
	Text      string `json:"text"`
	Format    string `json:"format,omitempty"`
	TextStyle string `json:"textStyle,omitempty"`
}

// Heading encodes its level in the role.
type Heading struct {
	Level     int    `json:"-"`
	Text      string `json:"text"`
	Format    string `json:"format,omitempty"`
	TextStyle string `json:"textStyle,omitempty"`
}

type Quote struct {
	Text      string `json:"text"`
	TextStyle string `json:"textStyle,omitempty"`
}

type Pullquote struct {
	Text      string `json:"text"`
	TextStyle string `json:"textStyle,omitempty"`
}

type Photo struct {
	URL                  string   `json:"URL"`
	Caption              *Caption `json:"caption,omitempty"`
	AccessibilityCaption string   `json:"accessibilityCaption,omitempty"`
}

// Caption is a styled caption descriptor.
type Caption struct {
	Text      string `json:"text"`
	TextStyle string `json:"textStyle,omitempty"`
}

type Video struct {
	URL      string `json:"URL"`
	StillURL string `json:"stillURL,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type EmbedWebVideo struct {
	URL     string `json:"URL"`
	Caption string `json:"caption,omitempty"`
}

type Tweet struct {
	URL string `json:"URL"`
}

type Instagram struct {
	URL string `json:"URL"`
}

type FacebookPost struct {
	URL string `json:"URL"`
}

type TikTok struct {
	URL string `json:"URL"`
}

type Divider struct{}

type HTMLTable struct {
	HTML string `json:"html"`
}

type BannerAdvertisement struct {
	BannerType string `json:"bannerType"`
}

func (Body) Role() Role                { return RoleBody }
func (h Heading) Role() Role           { return HeadingRole(h.Level) }
func (Quote) Role() Role               { return RoleQuote }
func (Pullquote) Role() Role           { return RolePullquote }
func (Photo) Role() Role               { return RolePhoto }
func (Video) Role() Role               { return RoleVideo }
func (EmbedWebVideo) Role() Role       { return RoleEmbedWebVideo }
func (Tweet) Role() Role               { return RoleTweet }
func (Instagram) Role() Role           { return RoleInstagram }
func (FacebookPost) Role() Role        { return RoleFacebookPost }
func (TikTok) Role() Role              { return RoleTikTok }
func (Divider) Role() Role             { return RoleDivider }
func (HTMLTable) Role() Role           { return RoleHTMLTable }
func (BannerAdvertisement) Role() Role { return RoleBannerAdvertisement }

func (Body) isComponent()                {}
func (Heading) isComponent()             {}
func (Quote) isComponent()               {}
func (Pullquote) isComponent()           {}
func (Photo) isComponent()               {}
func (Video) isComponent()               {}
func (EmbedWebVideo) isComponent()       {}
func (Tweet) isComponent()               {}
func (Instagram) isComponent()           {}
func (FacebookPost) isComponent()        {}
func (TikTok) isComponent()              {}
func (Divider) isComponent()             {}
func (HTMLTable) isComponent()           {}
func (BannerAdvertisement) isComponent() {}

// Components is an ordered component list. Each component is encoded as a
// JSON object carrying its "role".
type Components []Component

// Roles lists the role of every component in order.
func (cs Components) Roles() []Role {
	roles := make([]Role, len(cs))
	for i, c := range cs {
		roles[i] = c.Role()
	}
	return roles
}

// MarshalJSON writes every component with its role.
func (cs Components) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if c == nil {
			return nil, fmt.Errorf("components[%d]: nil component", i)
		}
		fields, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("components[%d]: %w", i, err)
		}
		role, err := json.Marshal(c.Role())
		if err != nil {
			return nil, fmt.Errorf("components[%d]: %w", i, err)
		}

		buf.WriteString(`{"role":`)
		buf.Write(role)
		if inner := bytes.TrimSpace(fields); len(inner) > 2 {
			buf.WriteByte(',')
			buf.Write(inner[1:])
		} else {
			buf.WriteByte('}')
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes components by role. Unknown roles are an error.
func (cs *Components) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	if raws == nil {
		*cs = nil
		return nil
	}

	out := make(Components, 0, len(raws))
	for i, raw := range raws {
		c, err := decodeComponent(raw)
		if err != nil {
			return fmt.Errorf("components[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	*cs = out
	return nil
}

func decodeComponent(raw json.RawMessage) (Component, error) {
	var head struct {
		Role Role `json:"role"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}

	switch head.Role {
	case RoleBody:
		return decodeAs[Body](raw)
	case RoleQuote:
		return decodeAs[Quote](raw)
	case RolePullquote:
		return decodeAs[Pullquote](raw)
	case RolePhoto:
		return decodeAs[Photo](raw)
	case RoleVideo:
		return decodeAs[Video](raw)
	case RoleEmbedWebVideo:
		return decodeAs[EmbedWebVideo](raw)
	case RoleTweet:
		return decodeAs[Tweet](raw)
	case RoleInstagram:
		return decodeAs[Instagram](raw)
	case RoleFacebookPost:
		return decodeAs[FacebookPost](raw)
	case RoleTikTok:
		return decodeAs[TikTok](raw)
	case RoleDivider:
		return Divider{}, nil
	case RoleHTMLTable:
		return decodeAs[HTMLTable](raw)
	case RoleBannerAdvertisement:
		return decodeAs[BannerAdvertisement](raw)
	}

	if level, ok := headingLevel(head.Role); ok {
		var h Heading
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, err
		}
		h.Level = level
		return h, nil
	}
	return nil, fmt.Errorf("unknown component role %q", head.Role)
}

func headingLevel(r Role) (int, bool) {
	rest, ok := strings.CutPrefix(string(r), "heading")
	if !ok {
		return 0, false
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 6 {
		return 0, false
	}
	return level, true
}

func decodeAs[T Component](raw json.RawMessage) (Component, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
