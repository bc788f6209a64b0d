package proto

import "testing"

func TestCreateArrayPacketsAndExtractArrayRoundTrip(t *testing.T) {
	enemies := []UpdateEnemy{
		{EnemyID: 1, X: 1, Y: 1},
		{EnemyID: 2, X: 2, Y: 2},
		{EnemyID: 3, X: 3, Y: 3},
	}
	frames := CreateArrayPackets[UpdateEnemy](TypeUpdateEnemy, enemies, MaxUpdateBatchBytes)
	if len(frames) != 1 {
		t.Fatalf("frames = %d, want 1 (all enemies fit under the batch cap)", len(frames))
	}

	got, err := ExtractArray[UpdateEnemy](frames[0].Body)
	if err != nil {
		t.Fatalf("ExtractArray: %v", err)
	}
	if len(got) != len(enemies) {
		t.Fatalf("decoded %d enemies, want %d", len(got), len(enemies))
	}
	for i, e := range enemies {
		if got[i] != e {
			t.Errorf("enemy %d = %+v, want %+v", i, got[i], e)
		}
	}
}

func TestCreateArrayPacketsSplitsAtTheByteCap(t *testing.T) {
	players := make([]UpdatePlayer, 10)
	for i := range players {
		players[i] = UpdatePlayer{PlayerID: uint8(i), X: float32(i), Y: float32(i)}
	}
	// sizeof(UpdatePlayer) == 12 bytes; a cap of 30 bytes fits 2 per packet.
	frames := CreateArrayPackets[UpdatePlayer](TypeUpdatePlayer, players, 30)
	if len(frames) != 5 {
		t.Fatalf("frames = %d, want 5 (10 players at 2 per packet)", len(frames))
	}
	for i, f := range frames {
		if len(f.Body) > 30 {
			t.Fatalf("frame %d body = %d bytes, exceeds the 30-byte cap", i, len(f.Body))
		}
		if f.Type != TypeUpdatePlayer {
			t.Errorf("frame %d type = %v, want %v", i, f.Type, TypeUpdatePlayer)
		}
	}

	var rebuilt []UpdatePlayer
	for _, f := range frames {
		batch, err := ExtractArray[UpdatePlayer](f.Body)
		if err != nil {
			t.Fatalf("ExtractArray: %v", err)
		}
		rebuilt = append(rebuilt, batch...)
	}
	if len(rebuilt) != len(players) {
		t.Fatalf("rebuilt %d players, want %d", len(rebuilt), len(players))
	}
	for i, p := range players {
		if rebuilt[i] != p {
			t.Errorf("player %d = %+v, want %+v", i, rebuilt[i], p)
		}
	}
}

func TestCreateArrayPacketsEmptyInputProducesNoFrames(t *testing.T) {
	if frames := CreateArrayPackets[UpdateEnemy](TypeUpdateEnemy, nil, MaxUpdateBatchBytes); frames != nil {
		t.Fatalf("frames = %v, want nil for an empty input", frames)
	}
}

func TestExtractArrayRejectsBodyNotAMultipleOfRecordSize(t *testing.T) {
	f := CreatePacket(TypeUpdateEnemy, &UpdateEnemy{EnemyID: 1, X: 1, Y: 1})
	if _, err := ExtractArray[UpdateEnemy](f.Body[:len(f.Body)-1]); err == nil {
		t.Fatal("ExtractArray accepted a body whose length isn't a multiple of the record size")
	}
}
