package domain

import "time"

// UnknownLang записывается, когда язык контента определить не удалось.
const UnknownLang = "unknown"

// EntityKind - тип сущности, у которой есть переводы.
type EntityKind string

const (
	KindPost    EntityKind = "post"
	KindComment EntityKind = "comment"
	KindMessage EntityKind = "message"
)

// Post представляет пост в системе.
type Post struct {
	ID           string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AuthorID     string    `json:"user_id" gorm:"type:varchar(255);not null;index"`
	Title        string    `json:"title" gorm:"type:varchar(200)"`
	Body         string    `json:"body" gorm:"type:text;not null"`
	Category     string    `json:"category,omitempty" gorm:"type:varchar(50);index"`
	Subcategory  string    `json:"subcategory,omitempty" gorm:"type:varchar(100)"`
	Visibility   string    `json:"visibility" gorm:"type:varchar(20);not null;default:'public'"`
	PostType     string    `json:"post_type" gorm:"type:varchar(20);not null;default:'post'"`
	Status       string    `json:"status" gorm:"type:varchar(20);not null;default:'published'"`
	MediaURLs    []string  `json:"media_urls" gorm:"type:jsonb;serializer:json"`
	LikeCount    int       `json:"like_count" gorm:"not null;default:0"`
	CommentCount int       `json:"comment_count" gorm:"not null;default:0"`
	OriginalLang string    `json:"original_lang" gorm:"type:varchar(10);not null;default:'unknown'"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;default:now()"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID           string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PostID       string    `json:"post_id" gorm:"type:uuid;not null;index"`
	ParentID     *string   `json:"parent_id,omitempty" gorm:"type:uuid;index"`
	AuthorID     string    `json:"user_id" gorm:"type:varchar(255);not null"`
	Body         string    `json:"body" gorm:"type:varchar(2000);not null"`
	OriginalLang string    `json:"original_lang" gorm:"type:varchar(10);not null;default:'unknown'"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:now()"`
}

// Message - сообщение в чате. Body может быть пустым (например, только картинка).
type Message struct {
	ID           string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ChatID       string    `json:"chat_id" gorm:"type:varchar(255);not null;index"`
	SenderID     string    `json:"sender_id" gorm:"type:varchar(255);not null"`
	Body         string    `json:"body" gorm:"type:text"`
	OriginalLang string    `json:"original_lang" gorm:"type:varchar(10);not null;default:'unknown'"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;default:now()"`
}

// Translation - закешированный перевод сущности на один язык.
// Пара (EntityKind, EntityID, Lang) уникальна.
type Translation struct {
	ID              string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	EntityKind      EntityKind `json:"entity_kind" gorm:"type:varchar(20);not null;uniqueIndex:uq_translation_entity_lang"`
	EntityID        string     `json:"entity_id" gorm:"type:uuid;not null;uniqueIndex:uq_translation_entity_lang"`
	Lang            string     `json:"lang" gorm:"type:varchar(10);not null;uniqueIndex:uq_translation_entity_lang"`
	TranslatedTitle string     `json:"translated_title,omitempty" gorm:"type:varchar(200)"`
	TranslatedText  string     `json:"translated_text" gorm:"type:text;not null"`
	Provider        string     `json:"provider" gorm:"type:varchar(50);not null"`
	ErrorCode       string     `json:"error_code,omitempty" gorm:"type:varchar(50)"`
	CreatedAt       time.Time  `json:"created_at" gorm:"not null;default:now()"`
}

// Translated сообщает, содержит ли запись настоящий перевод.
func (t *Translation) Translated() bool {
	return t != nil && t.ErrorCode == ""
}

// UserPreference хранит выбранный пользователем язык.
type UserPreference struct {
	UserID        string    `json:"user_id" gorm:"type:varchar(255);primary_key"`
	PreferredLang string    `json:"preferred_lang" gorm:"type:varchar(10);not null"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"not null;default:now()"`
}

// === Views ===

// TranslatedPost - пост, готовый к показу на языке ViewLang. Не хранится.
type TranslatedPost struct {
	Post
	ViewLang       string `json:"view_lang"`
	DisplayTitle   string `json:"display_title"`
	DisplayText    string `json:"display_text"`
	HasTranslation bool   `json:"has_translation"`
	IsTranslated   bool   `json:"is_translated"`
}

// CommentView - комментарий, готовый к показу.
type CommentView struct {
	CommentID      string  `json:"comment_id"`
	PostID         string  `json:"post_id"`
	ParentID       *string `json:"parent_id,omitempty"`
	AuthorID       string  `json:"user_id"`
	OriginalLang   string  `json:"original_lang"`
	OriginalText   string  `json:"original_text"`
	TranslatedText string  `json:"translated_text"`
	TargetLang     string  `json:"target_lang"`
	IsTranslated   bool    `json:"is_translated"`
	HasTranslation bool    `json:"has_translation"`
	// Число прямых ответов и первые из них, уже на языке зрителя
	ReplyCount int            `json:"reply_count"`
	Replies    []*CommentView `json:"replies,omitempty"`
}

// MessageView - сообщение чата, готовое к показу.
type MessageView struct {
	MessageID      string    `json:"message_id"`
	ChatID         string    `json:"chat_id"`
	SenderID       string    `json:"sender_id"`
	OriginalLang   string    `json:"original_lang"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	TargetLang     string    `json:"target_lang"`
	IsTranslated   bool      `json:"is_translated"`
	HasTranslation bool      `json:"has_translation"`
	CreatedAt      time.Time `json:"created_at"`
}
