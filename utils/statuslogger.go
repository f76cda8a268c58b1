package utils

import (
	"fmt"
	"sync"
	"time"
)

const (
	INFO = iota
	WORK
	ERROR
)

type Message struct {
	Time time.Time
	Text string
	Type int8
}

// Ring of latest conversion messages, served by the web status endpoint
var (
	messagesLock sync.Mutex
	messages     [32]*Message
)

func Status(text string, _type int8) {
	messagesLock.Lock()
	defer messagesLock.Unlock()

	for i := 1; i < len(messages); i++ {
		messages[i-1] = messages[i]
	}
	m := &Message{Time: time.Now(), Text: text, Type: _type}
	messages[len(messages)-1] = m
	if statusHook != nil {
		statusHook(*m)
	}
}

var statusHook func(Message)

// SetStatusHook registers f to receive every new message. f runs under the
// ring lock and must not block. Nil removes it.
func SetStatusHook(f func(Message)) {
	messagesLock.Lock()
	defer messagesLock.Unlock()
	statusHook = f
}

func StatusInfof(format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), INFO)
}

func StatusWarnf(format string, a ...interface{}) {
	Status(fmt.Sprintf(format, a...), ERROR)
}

// StatusMessages returns stored messages oldest first.
func StatusMessages() []Message {
	messagesLock.Lock()
	defer messagesLock.Unlock()

	result := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			result = append(result, *m)
		}
	}
	return result
}

func StatusReset() {
	messagesLock.Lock()
	defer messagesLock.Unlock()
	messages = [32]*Message{}
}
