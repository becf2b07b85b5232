package main

import (
	"encoding/binary"
	"flag"
	"io"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Stream audio in 100ms chunks to simulate a live provider.
const chunkIntervalMs = 100

// timestampHeaderLen is the big-endian millisecond prefix on each data frame.
const timestampHeaderLen = 8

func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	serverAddr := flag.String("server", "localhost:8090", "Meetscript server host:port")
	token := flag.String("token", "", "Provide-scope access token")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if numChannels != 1 {
		log.Fatal("Only mono audio supported")
	}
	if bitsPerSample != 16 {
		log.Fatal("Only 16-bit samples supported")
	}
	if sampleRate != 16000 {
		log.Printf("Warning: Sample rate is %d Hz, expected 16000 Hz", sampleRate)
	}

	u := url.URL{
		Scheme:   "ws",
		Host:     *serverAddr,
		Path:     "/ws/meet/provide",
		RawQuery: url.Values{"format": {"int16le"}, "token": {*token}}.Encode(),
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, ack, err := conn.ReadMessage(); err != nil {
		log.Fatalf("Failed to read ack: %v", err)
	} else {
		log.Printf("Connected to %s: %s", *serverAddr, ack)
	}

	// 100ms of 16-bit mono audio at the file's sample rate.
	chunkBytes := int(sampleRate) / 10 * 2
	frame := make([]byte, timestampHeaderLen+chunkBytes)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(frame[timestampHeaderLen:])
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		offsetMs := uint64(chunkNum * chunkIntervalMs)
		binary.BigEndian.PutUint64(frame[:timestampHeaderLen], offsetMs)
		if err := conn.WriteMessage(websocket.BinaryMessage, frame[:timestampHeaderLen+n]); err != nil {
			log.Fatalf("Failed to send frame: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)
		if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total, offset=%dms)", chunkNum, totalBytes, offsetMs)
		}

		// Simulate real-time streaming
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	elapsed := time.Since(startTime)
	log.Printf("Finished streaming: %d chunks, %d bytes in %v", chunkNum, totalBytes, elapsed)

	// Voluntary disconnect; the server answers with a normal close.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"code":1}`)); err != nil {
		log.Fatalf("Failed to send disconnect: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	log.Println("Stream completed")
}
