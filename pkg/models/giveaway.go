package models

// Giveaway is a time-boxed credit lottery keyed by its rallying message id.
// Participants are not stored; they are read from the message reactions when
// the giveaway is resolved.
type Giveaway struct {
	MessageID Snowflake `json:"message_id"`
	ChannelID Snowflake `json:"channel_id"`
	EndTS     int64     `json:"end_ts"`
	Amount    int64     `json:"amount"`
	HostID    Snowflake `json:"host_id"`
	CreatedAt int64     `json:"created_at"`
}

// GiveawaysDocument is the persisted shape of giveaways.json.
type GiveawaysDocument struct {
	Giveaways map[string]*Giveaway `json:"giveaways"`
}

// NewGiveawaysDocument returns the empty-but-valid default document.
func NewGiveawaysDocument() *GiveawaysDocument {
	return &GiveawaysDocument{Giveaways: make(map[string]*Giveaway)}
}
