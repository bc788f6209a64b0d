package lobby

import (
	"github.com/rtypearena/server/internal/core/event"
	"github.com/rtypearena/server/internal/dispatch"
	"github.com/rtypearena/server/internal/proto"
)

// RegisterHandlers wires every lobby packet type into table, decoding the
// wire payload and republishing it as a bus event the Service consumes.
// Handlers never touch service state directly — they only run on the
// connection's own goroutine and must not race the service's run loop.
func RegisterHandlers(table *dispatch.Table, bus *event.Bus) {
	table.Register(proto.TypeRegister, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.RegisterPacket](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.UserRegistered{ConnID: origin.TCP.ID, Username: p.Username, Password: p.Password})
		return nil
	})

	table.Register(proto.TypeLogin, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.LoginPacket](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.UserLoginAttempted{ConnID: origin.TCP.ID, Username: p.Username, Password: p.Password})
		return nil
	})

	table.Register(proto.TypeCreateLobby, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.CreateLobby](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.LobbyCreateRequested{ConnID: origin.TCP.ID, Name: p.Name, Password: p.Password})
		return nil
	})

	table.Register(proto.TypeJoinLobby, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.JoinLobby](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.LobbyJoinRequested{ConnID: origin.TCP.ID, LobbyID: p.LobbyID, Password: p.Password})
		return nil
	})

	table.Register(proto.TypeLeaveLobby, func(origin dispatch.Origin, body []byte) error {
		event.Publish(bus, event.LobbyLeaveRequested{ConnID: origin.TCP.ID})
		return nil
	})

	table.Register(proto.TypePlayerReady, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.PlayerReady](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.LobbyReadyToggled{ConnID: origin.TCP.ID, IsReady: p.IsReady})
		return nil
	})

	table.Register(proto.TypeGetLobbyList, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.GetLobbyList](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.LobbyListRequested{ConnID: origin.TCP.ID, Offset: p.Offset, Limit: p.Limit, Search: p.Search})
		return nil
	})

	table.Register(proto.TypeGetLobbyPlayers, func(origin dispatch.Origin, body []byte) error {
		event.Publish(bus, event.LobbyPlayersRequested{ConnID: origin.TCP.ID})
		return nil
	})

	table.Register(proto.TypeGetUserList, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.GetLobbyList](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.UserListRequested{ConnID: origin.TCP.ID, Offset: p.Offset, Limit: p.Limit})
		return nil
	})

	table.Register(proto.TypePrivateMessage, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.PrivateMessage](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.PrivateMessageSent{ConnID: origin.TCP.ID, RecipientID: p.RecipientID, Content: p.Content})
		return nil
	})

	table.Register(proto.TypePrivateChatHistory, func(origin dispatch.Origin, body []byte) error {
		p, err := proto.Extract[proto.PrivateChatHistory](body)
		if err != nil {
			return err
		}
		event.Publish(bus, event.PrivateHistoryRequested{ConnID: origin.TCP.ID, WithID: p.WithID})
		return nil
	})
}
