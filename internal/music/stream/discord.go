package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bwmarrin/discordgo"
	"layeh.com/gopus"
)

// StreamToDiscord pumps PCM from stream into the voice connection until the
// source drains, stop closes, or a read/encode error occurs. Gain from ctrl
// is applied per sample; while paused the loop stops pulling PCM, which
// backpressures the decoder.
func StreamToDiscord(stream io.ReadCloser, ctrl *Controls, stop <-chan struct{}, vc *discordgo.VoiceConnection) error {
	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	defer stream.Close()

	pcmBuf := make([]byte, frameSize*channels*2)
	intBuf := make([]int16, frameSize*channels)

	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if ctrl != nil && ctrl.Paused() {
			select {
			case <-stop:
				return nil
			case <-time.After(20 * time.Millisecond):
			}
			continue
		}

		_, err := io.ReadFull(stream, pcmBuf)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil // source drained
		}
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		gain := 1.0
		if ctrl != nil {
			gain = ctrl.Volume()
		}
		for i := range intBuf {
			sample := int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
			intBuf[i] = scaleSample(sample, gain)
		}

		opus, err := encoder.Encode(intBuf, frameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case <-stop:
			return nil
		case vc.OpusSend <- opus:
		}
	}
}

func scaleSample(s int16, gain float64) int16 {
	if gain == 1.0 {
		return s
	}
	scaled := float64(s) * gain
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return int16(scaled)
}
