// Package proto defines the wire packet header, the typed payload structs,
// and the codec that (de)serializes payloads into packet bodies.
package proto

import "encoding/binary"

// HeaderSize is the fixed 8-byte header: {type uint32 LE, size uint32 LE}.
const HeaderSize = 8

// MaxTCPBody is the largest body a framed TCP connection accepts.
const MaxTCPBody = 1 << 20 // 1 MiB

// MaxUDPPacket is the largest payload a single UDP datagram may carry,
// header included (MTU 1500 minus IPv4/UDP headers).
const MaxUDPPacket = 1472

// MaxUpdateBatchBytes bounds the body of one packed Update* array so a
// tick's delta/snapshot broadcast never produces a datagram the receiver
// can't reassemble, leaving headroom under MaxUDPPacket for the frame
// header and IP/UDP overhead.
const MaxUpdateBatchBytes = 1400

// Type identifies a packet's payload kind. Values double as the dispatch
// table index, so they must stay dense starting at 0.
type Type uint32

const (
	TypeLogin Type = iota
	TypeRegister
	TypeAuthResult
	TypePlayerAssign
	TypePlayerInput
	TypeUpdatePlayer
	TypeRemovePlayer
	TypeUpdateProjectile
	TypeRemoveProjectile
	TypeUpdateEnemy
	TypeRemoveEnemy
	TypeCreateLobby
	TypeJoinLobby
	TypeLeaveLobby
	TypeGetLobbyList
	TypeLobbyListResponse
	TypeGetLobbyPlayers
	TypeLobbyPlayersResponse
	TypeGetUserList
	TypeUserListResponse
	TypePlayerJoinedLobby
	TypePlayerLeftLobby
	TypePlayerReady
	TypeLobbyPlayerReady
	TypeGameConnectionInfo
	TypePrivateMessage
	TypePrivateChatHistory
	TypeStatusResponse
	TypeCreateLobbyResponse
	TypePing

	MaxTypes
)

// Header is the 8-byte frame preamble. Size is the body byte count and
// must equal len(body) on both encode and decode.
type Header struct {
	Type Type
	Size uint32
}

func (h Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Type))
	binary.LittleEndian.PutUint32(buf[4:8], h.Size)
	return buf
}

func DecodeHeader(buf []byte) Header {
	return Header{
		Type: Type(binary.LittleEndian.Uint32(buf[0:4])),
		Size: binary.LittleEndian.Uint32(buf[4:8]),
	}
}
