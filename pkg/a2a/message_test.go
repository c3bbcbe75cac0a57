package a2a

import (
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewTextMessage(t *testing.T) {
	Convey("Given a text message", t, func() {
		msg := NewTextMessage(RoleUser, "hello")

		Convey("It should carry one text part and a message id", func() {
			So(msg.Role, ShouldEqual, RoleUser)
			So(len(msg.Parts), ShouldEqual, 1)
			So(msg.Parts[0].Type, ShouldEqual, PartTypeText)
			So(msg.MessageID, ShouldNotBeEmpty)
		})

		Convey("Text should return the part content", func() {
			So(msg.Text(), ShouldEqual, "hello")
		})
	})
}

func TestMessageText(t *testing.T) {
	Convey("Given a mixed-part message", t, func() {
		msg := Message{
			Role: RoleAssistant,
			Parts: []Part{
				NewTextPart("first "),
				NewDataPart("image/png", []byte{0x89}),
				NewTextPart("second"),
			},
		}

		Convey("Text concatenates only the text parts", func() {
			So(msg.Text(), ShouldEqual, "first second")
		})
	})
}

func TestMessageValidate(t *testing.T) {
	Convey("Given message validation", t, func() {
		Convey("A valid message passes", func() {
			msg := NewTextMessage(RoleUser, "hi")
			So(msg.Validate(), ShouldBeNil)
		})

		Convey("An unknown role is rejected", func() {
			msg := Message{Role: "robot", Parts: []Part{NewTextPart("hi")}}
			rpcErr := msg.Validate()

			So(rpcErr, ShouldNotBeNil)
			So(rpcErr.Message, ShouldContainSubstring, "unknown role")
		})

		Convey("A message with no parts is rejected", func() {
			msg := Message{Role: RoleUser}
			So(msg.Validate(), ShouldNotBeNil)
		})

		Convey("An invalid part fails the whole message", func() {
			msg := Message{Role: RoleUser, Parts: []Part{{Type: PartTypeText}}}
			So(msg.Validate(), ShouldNotBeNil)
		})
	})
}

func TestPartValidate(t *testing.T) {
	Convey("Given the part union", t, func() {
		Convey("Each constructor yields a valid part", func() {
			parts := []Part{
				NewTextPart("hi"),
				NewDataPart("application/octet-stream", []byte{1, 2}),
				NewFilePart("/tmp/report.pdf"),
			}

			for _, part := range parts {
				So(part.Validate(), ShouldBeNil)
			}
		})

		Convey("A part missing its payload is rejected", func() {
			So((&Part{Type: PartTypeText}).Validate(), ShouldNotBeNil)
			So((&Part{Type: PartTypeImage}).Validate(), ShouldNotBeNil)
			So((&Part{Type: PartTypeFile}).Validate(), ShouldNotBeNil)
		})

		Convey("An unknown type is rejected", func() {
			So((&Part{Type: "hologram"}).Validate(), ShouldNotBeNil)
		})
	})
}

func TestMessageSendParamsValidate(t *testing.T) {
	Convey("Given message/send params", t, func() {
		Convey("Valid params default the output modes", func() {
			params := MessageSendParams{
				ID:      "req-1",
				Message: NewTextMessage(RoleUser, "hi"),
			}

			So(params.Validate(), ShouldBeNil)
			So(params.AcceptedOutputModes, ShouldResemble, []string{"text"})
		})

		Convey("Explicit output modes are kept", func() {
			params := MessageSendParams{
				ID:                  "req-1",
				AcceptedOutputModes: []string{"text", "image"},
				Message:             NewTextMessage(RoleUser, "hi"),
			}

			So(params.Validate(), ShouldBeNil)
			So(params.AcceptedOutputModes, ShouldResemble, []string{"text", "image"})
		})

		Convey("A missing id is rejected", func() {
			params := MessageSendParams{Message: NewTextMessage(RoleUser, "hi")}
			So(params.Validate(), ShouldNotBeNil)
		})
	})
}

func TestMessageJSON(t *testing.T) {
	Convey("Given a serialized message", t, func() {
		msg := NewTextMessage(RoleUser, "hello")
		msg.SessionID = "session-1"
		msg.TaskID = "task-1"

		buf, err := json.Marshal(msg)
		So(err, ShouldBeNil)

		Convey("The wire format uses snake_case keys", func() {
			So(string(buf), ShouldContainSubstring, `"session_id":"session-1"`)
			So(string(buf), ShouldContainSubstring, `"task_id":"task-1"`)
			So(string(buf), ShouldContainSubstring, `"message_id"`)
		})
	})
}
