// Package queue 定义文件生命周期事件的主题、负载与编解码.
package queue

// 主题命名：filehost.<域>.<动作>.
const (
	TopicFileStored = "filehost.file.stored" // 文件写入存储卷且元数据已提交
	TopicFilePurged = "filehost.file.purged" // 文件与元数据已被删除

	// TopicFileAll 订阅文件域全部事件的通配模式（NATS 语义）.
	TopicFileAll = "filehost.file.>"
)

// AllTopics 返回全部已定义主题.
func AllTopics() []string {
	return []string{TopicFileStored, TopicFilePurged}
}
