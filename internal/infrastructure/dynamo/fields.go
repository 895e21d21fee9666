package dynamo

// DynamoDB attribute names used in expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldNotificationID = "notification_id"
	fieldUserID         = "user_id"
	fieldCreatedAt      = "created_at"
	fieldType           = "type"
	fieldIsRead         = "is_read"
	fieldReadAt         = "read_at"
	fieldEmail          = "email"

	indexUserCreatedAt = "user_id-created_at-index"
)
