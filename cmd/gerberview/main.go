// gerberview command line front end: classifies input files, runs the
// parsing pipeline and reports the resulting mesh, optionally writing a
// PNG preview of the triangles.
package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/image/vector"

	"github.com/SohaibAli9/gerberview"
	"github.com/SohaibAli9/gerberview/configurator"
	"github.com/SohaibAli9/gerberview/mesh"
)

var viperConfig *viper.Viper

var (
	flagPNG     bool
	flagOutFile string
)

var rootCmd = &cobra.Command{
	Use:   "gerberview <file>...",
	Short: "Convert Gerber and Excellon files to triangle meshes",
	Long: `gerberview parses Gerber RS-274X image files and Excellon NC-drill
files and reports the triangulated mesh each one produces. With --png the
mesh is rasterised to an image, clear-polarity ranges painted in the
background color.`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	rootCmd.Flags().BoolVar(&flagPNG, "png", false, "write a PNG preview per input file")
	rootCmd.Flags().StringVarP(&flagOutFile, "out", "o", "", "PNG output file (single input only)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	viperConfig = viper.New()
	configurator.SetDefaults(viperConfig)
	if err := configurator.ProcessConfigFile(viperConfig); err != nil {
		// no config file is fine, the defaults apply
		configurator.SetDefaults(viperConfig)
	}
	if flagPNG {
		viperConfig.Set(configurator.CfgRendererGeneratePNG, true)
	}
	if flagOutFile != "" {
		viperConfig.Set(configurator.CfgRendererGeneratePNG, true)
		viperConfig.Set(configurator.CfgRendererOutFile, flagOutFile)
	}

	for _, name := range args {
		if err := processFile(name, len(args) > 1); err != nil {
			return err
		}
	}
	return nil
}

func processFile(name string, multi bool) error {
	buf, err := os.ReadFile(name)
	if err != nil {
		return err
	}

	var layer *mesh.Layer
	switch classify(name, buf) {
	case "gerber":
		layer, err = gerberview.ParseGerber(buf)
	case "excellon":
		layer, err = gerberview.ParseExcellon(buf)
	default:
		return fmt.Errorf("%s: cannot classify as Gerber or Excellon", name)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	fmt.Println("file:", name)
	if viperConfig.GetBool(configurator.CfgCommonPrintStatistic) {
		fmt.Println("\tcommands: ", layer.CommandCount)
		fmt.Println("\tvertices: ", layer.VertexCount)
		fmt.Println("\ttriangles:", layer.IndexCount/3)
		fmt.Println("\tbounds:   ", layer.Bounds.String())
		fmt.Println("\twarnings: ", layer.WarningCount)
	}
	if viperConfig.GetBool(configurator.CfgCommonPrintWarnings) {
		for _, w := range layer.Warnings {
			fmt.Println("\twarning:", w)
		}
	}

	if viperConfig.GetBool(configurator.CfgRendererGeneratePNG) {
		outFile := viperConfig.GetString(configurator.CfgRendererOutFile)
		if multi {
			ext := filepath.Ext(outFile)
			outFile = strings.TrimSuffix(outFile, ext) + "-" + filepath.Base(name) + ext
		}
		if err := writePNG(layer, outFile); err != nil {
			return fmt.Errorf("%s: %w", outFile, err)
		}
		fmt.Println("\timage:   ", outFile)
	}
	return nil
}

// classify picks the parser for a file: the content sniff first (the
// literal %FSLAX in the first 256 bytes means Gerber, M48 at a line
// start means Excellon), the file extension as a fallback.
func classify(name string, buf []byte) string {
	head := buf
	if len(head) > 256 {
		head = head[:256]
	}
	if bytes.Contains(head, []byte("%FSLAX")) {
		return "gerber"
	}
	if bytes.HasPrefix(head, []byte("M48")) || bytes.Contains(head, []byte("\nM48")) ||
		bytes.Contains(head, []byte("\rM48")) {
		return "excellon"
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gbr", ".ger", ".gtl", ".gbl", ".gts", ".gbs", ".gto", ".gbo":
		return "gerber"
	case ".drl", ".xln", ".drd", ".txt":
		return "excellon"
	}
	return "unknown"
}

// writePNG rasterises the triangle mesh. Dark geometry is painted in
// copper, clear ranges on top in the background color.
func writePNG(layer *mesh.Layer, path string) error {
	width := viperConfig.GetInt(configurator.CfgRendererCanvasWidth)
	height := viperConfig.GetInt(configurator.CfgRendererCanvasHeight)
	margin := viperConfig.GetFloat64(configurator.CfgRendererMarginMM)

	background := color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
	copper := color.RGBA{R: 0xc8, G: 0x7a, B: 0x33, A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	if layer.VertexCount == 0 {
		return encodePNG(img, path)
	}

	bb := layer.Bounds
	spanX := bb.MaxX - bb.MinX + 2*margin
	spanY := bb.MaxY - bb.MinY + 2*margin
	if spanX <= 0 || spanY <= 0 {
		return encodePNG(img, path)
	}
	scale := float64(width) / spanX
	if s := float64(height) / spanY; s < scale {
		scale = s
	}

	toImage := func(idx uint32) (float32, float32) {
		x := float64(layer.Positions[2*idx])
		y := float64(layer.Positions[2*idx+1])
		// board Y points up, image Y points down
		px := (x - bb.MinX + margin) * scale
		py := float64(height) - (y-bb.MinY+margin)*scale
		return float32(px), float32(py)
	}

	inClearRange := func(first int) bool {
		for _, r := range layer.ClearRanges {
			if first >= int(r.First) && first < int(r.First)+int(r.Count) {
				return true
			}
		}
		return false
	}

	rasterise := func(clear bool, src color.RGBA) {
		z := vector.NewRasterizer(width, height)
		touched := false
		for i := 0; i+2 < len(layer.Indices); i += 3 {
			if inClearRange(i) != clear {
				continue
			}
			ax, ay := toImage(layer.Indices[i])
			bx, by := toImage(layer.Indices[i+1])
			cx, cy := toImage(layer.Indices[i+2])
			z.MoveTo(ax, ay)
			z.LineTo(bx, by)
			z.LineTo(cx, cy)
			z.ClosePath()
			touched = true
		}
		if touched {
			z.Draw(img, img.Bounds(), image.NewUniform(src), image.Point{})
		}
	}

	rasterise(false, copper)
	rasterise(true, background)

	return encodePNG(img, path)
}

func encodePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
