package proto

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Type: TypeUpdatePlayer, Size: 17}
	buf := h.Encode()
	got := DecodeHeader(buf[:])
	if got.Type != h.Type || got.Size != h.Size {
		t.Fatalf("DecodeHeader(Encode(h)) = %+v, want %+v", got, h)
	}
}

func TestCreatePacketAndExtract(t *testing.T) {
	want := &PlayerAssign{SpawnX: 12.5, SpawnY: -4, Score: 0, PlayerID: 7, Health: 100}
	f := CreatePacket(TypePlayerAssign, want)
	if f.Type != TypePlayerAssign {
		t.Fatalf("frame type = %v, want %v", f.Type, TypePlayerAssign)
	}

	got, err := Extract[PlayerAssign](f.Body)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if *got != *want {
		t.Errorf("Extract(CreatePacket(want)) = %+v, want %+v", got, want)
	}
}

func TestExtractRejectsTrailingBytes(t *testing.T) {
	f := CreatePacket(TypePlayerInput, &PlayerInput{PlayerID: 1, Actions: 3, DirX: 1, DirY: 0})
	padded := append(f.Body, 0xFF)
	if _, err := Extract[PlayerInput](padded); err == nil {
		t.Fatal("Extract accepted a body with trailing bytes")
	}
}

func TestExtractRejectsTruncatedBody(t *testing.T) {
	f := CreatePacket(TypeRemovePlayer, &RemoveEntity{ID: 42})
	if _, err := Extract[RemoveEntity](f.Body[:len(f.Body)-1]); err == nil {
		t.Fatal("Extract accepted a truncated body")
	}
}

func TestFrameEncodeRoundTripsThroughHeader(t *testing.T) {
	f := CreatePacket(TypeUpdateEnemy, &UpdateEnemy{EnemyID: 9, X: 1, Y: 2})
	raw := f.Encode()

	h := DecodeHeader(raw[:HeaderSize])
	if h.Type != TypeUpdateEnemy {
		t.Fatalf("header type = %v, want %v", h.Type, TypeUpdateEnemy)
	}
	if int(h.Size) != len(raw)-HeaderSize {
		t.Fatalf("header size = %d, want %d", h.Size, len(raw)-HeaderSize)
	}

	got, err := Extract[UpdateEnemy](raw[HeaderSize:])
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.EnemyID != 9 || got.X != 1 || got.Y != 2 {
		t.Errorf("round-tripped payload = %+v", got)
	}
}
