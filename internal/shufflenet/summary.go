package shufflenet

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/born-ml/shufflenet/internal/nn"
	"github.com/born-ml/shufflenet/internal/tensor"
)

// Summary writes the stage plan and parameter counts of the classifier.
func (c *Classifier[B]) Summary(w io.Writer) error {
	final := c.Config().DepthMultiplier.FinalChannels()
	return writeSummary(w, c.String(), c.backbone, c, fmt.Sprintf("logits\t-\t%d\t1\t-\t-\n", final))
}

// Summary writes the stage plan and parameter counts of the backbone.
func (m *Backbone[B]) Summary(w io.Writer) error {
	return writeSummary(w, m.String(), m, m, "")
}

func writeSummary[B tensor.Backend](w io.Writer, title string, backbone *Backbone[B], model nn.Module[B], tail string) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "block\tunits\tout\tstride\trate\toutput_stride")
	fmt.Fprintf(tw, "stem\t-\t%d\t%d\t1\t%d\n", stemChannels, MinOutputStride, MinOutputStride)
	for _, p := range backbone.Plans() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d/%d\t%d\n",
			p.Name, p.Units, p.OutChannels, p.Stride, p.DownsampleRate, p.Rate, p.OutputStride)
	}
	fmt.Fprint(tw, tail)
	if err := tw.Flush(); err != nil {
		return err
	}

	trainable, nonTrainable := nn.CountParameters(model)
	_, err := fmt.Fprintf(w, "Trainable params: %d\nNon-trainable params: %d\nTotal params: %d\n",
		trainable, nonTrainable, trainable+nonTrainable)
	return err
}
