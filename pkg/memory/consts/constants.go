package consts

const (
	// DefaultDBName is the default database name.
	DefaultDBName = "docqa"

	// Table/collection names.
	TableUsers       = "users"
	TableDocuments   = "documents"
	TableChatHistory = "chat_history"

	// Column names
	ColID         = "id"
	ColEmail      = "email"
	ColPassword   = "hashed_password"
	ColFullName   = "full_name"
	ColUserID     = "user_id"
	ColName       = "name"
	ColStoredName = "stored_name"
	ColUploadTime = "upload_time"
	ColQuestion   = "question"
	ColAnswer     = "answer"
	ColSources    = "sources"
	ColTimestamp  = "timestamp"
	ColCreatedAt  = "created_at"
	ColSeq        = "seq"

	// Neo4j specific
	LabelUser      = "User"
	LabelDocument  = "Document"
	LabelChatEntry = "ChatEntry"
	RelOwns        = "OWNS"
	RelAsked       = "ASKED"
)
