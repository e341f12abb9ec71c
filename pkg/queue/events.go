package queue

import "github.com/ThreeDotsLabs/watermill/message"

// PublishFileStored 发布 filehost.file.stored 事件.
func PublishFileStored(pub message.Publisher, payload FileStoredPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFileStored, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFileStored, msg)
}

// ParseFileStored 解析 filehost.file.stored 消息.
func ParseFileStored(msg *message.Message) (Message[FileStoredPayload], error) {
	return ParseWatermillMessage[FileStoredPayload](msg)
}

// PublishFilePurged 发布 filehost.file.purged 事件.
func PublishFilePurged(pub message.Publisher, payload FilePurgedPayload, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(TopicFilePurged, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(TopicFilePurged, msg)
}

// ParseFilePurged 解析 filehost.file.purged 消息.
func ParseFilePurged(msg *message.Message) (Message[FilePurgedPayload], error) {
	return ParseWatermillMessage[FilePurgedPayload](msg)
}
