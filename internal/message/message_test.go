package message

import (
	"bytes"
	"reflect"
	"testing"
)

func sampleMessage() Message {
	var sender, recipient [32]byte
	copy(sender[:], []byte("sender-address-32-bytes-long!!!!"))
	copy(recipient[:], []byte("recipient-address-32-bytes-long"))
	return Message{
		Kind:        KindSYN,
		Origin:      5,
		Sender:      sender,
		Nonce:       42,
		Destination: 0,
		Recipient:   recipient,
		Body:        []byte("hi"),
	}
}

func TestCodecRoundTrip(t *testing.T) {
	m := sampleMessage()
	got, err := Decode(Encode(m))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, m)
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	m := sampleMessage()
	raw := Encode(m)

	// the kind field occupies the final byte of the first 32-byte ABI word.
	mutated := bytes.Clone(raw)
	mutated[31] = 9
	if _, err := Decode(mutated); err == nil {
		t.Fatal("expected decode error for out-of-range kind")
	}
}

func TestLeafDigestIsDeterministic(t *testing.T) {
	m := sampleMessage()
	d1 := LeafDigest(m)
	d2 := LeafDigest(m)
	if d1 != d2 {
		t.Fatal("leaf digest must be deterministic")
	}
	m2 := m
	m2.Nonce++
	if LeafDigest(m2) == d1 {
		t.Fatal("leaf digest must depend on message contents")
	}
}

func TestLocalRecipientConvention(t *testing.T) {
	var recipient [32]byte
	for i := 22; i < 32; i++ {
		recipient[i] = byte(i)
	}
	got := LocalRecipient(recipient)
	for i, b := range got {
		if b != byte(22+i) {
			t.Fatalf("byte %d: got %d want %d", i, b, 22+i)
		}
	}
}
