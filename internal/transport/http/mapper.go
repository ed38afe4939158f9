package http

import (
	"github.com/studyhall/roomchat/internal/core"
	"github.com/studyhall/roomchat/internal/proto"
)

func outboundFromEvent(event *core.Event) any {
	switch event.Kind {
	case core.EventNotice:
		return proto.Notice{Notice: event.Notice}
	default:
		return proto.Outbound{
			Message:   event.Message,
			Username:  event.Username,
			Timestamp: event.Timestamp.Format(proto.TimestampFormat),
		}
	}
}
