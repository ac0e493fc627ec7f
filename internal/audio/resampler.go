package audio

import (
	"fmt"
	"math"
)

// Resampler converts interleaved 16-bit PCM between sample rates.
type Resampler interface {
	Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error)
}

// LinearResampler interpolates linearly between neighbouring frames.
// It is cheap and good enough for music beds mixed under game audio.
type LinearResampler struct{}

// NewLinearResampler creates a linear resampler.
func NewLinearResampler() *LinearResampler {
	return &LinearResampler{}
}

// Resample maps each output frame to position outFrame*inputRate/outputRate
// in the input and blends the two surrounding frames per channel.
func (r *LinearResampler) Resample(input []int16, inputRate, outputRate, channels int) ([]int16, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: input=%d, output=%d", inputRate, outputRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channels: %d", channels)
	}
	if len(input) == 0 {
		return []int16{}, nil
	}

	if inputRate == outputRate {
		result := make([]int16, len(input))
		copy(result, input)
		return result, nil
	}

	inputFrames := len(input) / channels
	if inputFrames == 0 {
		return []int16{}, nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputFrames := int(math.Ceil(float64(inputFrames) / ratio))
	output := make([]int16, outputFrames*channels)

	for outFrame := 0; outFrame < outputFrames; outFrame++ {
		position := float64(outFrame) * ratio
		inFrame := int(position)
		frac := position - float64(inFrame)

		if inFrame >= inputFrames-1 {
			inFrame = max(inputFrames-2, 0)
			frac = 1.0
		}

		for ch := 0; ch < channels; ch++ {
			a := inFrame*channels + ch
			b := (inFrame+1)*channels + ch
			if b >= len(input) {
				b = a
			}

			v := float64(input[a])*(1.0-frac) + float64(input[b])*frac
			output[outFrame*channels+ch] = clipInt16(v)
		}
	}

	return output, nil
}

func clipInt16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
