package wire

// AnnouncementRequest is the body of the HTTP announcement endpoints.
type AnnouncementRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// AnnouncementPayload is broadcast to an academy or class room when an
// announcement is posted.
type AnnouncementPayload struct {
	// Scope is "academy" or "class".
	Scope     string `json:"scope"`
	AcademyID int64  `json:"academyId,omitempty"`
	ClassID   int64  `json:"classId,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	PostedBy  int64  `json:"postedBy"`
	PostedAt  int64  `json:"postedAt"`
}

// ClassMessagePayload is a client-emitted message relayed to a class room.
type ClassMessagePayload struct {
	ClassID int64  `json:"classId"`
	Content string `json:"content"`
	// SenderID and SentAt are filled in by the server before relaying.
	SenderID int64 `json:"senderId,omitempty"`
	SentAt   int64 `json:"sentAt,omitempty"`
}

// PresencePingPayload is a client-emitted liveness ping.
type PresencePingPayload struct {
	Time int64 `json:"time"`
}

// StatsPayload is streamed on the plain-websocket stats endpoint.
type StatsPayload struct {
	Connections int   `json:"connections"`
	Time        int64 `json:"time"`
}
