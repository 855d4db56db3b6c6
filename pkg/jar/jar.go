// Package jar weaves every class of a jar or class directory.
//
// Classes are woven concurrently; the output keeps the input's entry order,
// with generated classes appended after the entries they came from.
package jar

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/daimatz/jweave/pkg/weave"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Report summarises one archive or directory.
type Report struct {
	// Results holds one entry per class file, in input order.
	Results []*weave.Result
	// InputSize and OutputSize are the total class bytes read and written.
	InputSize  int64
	OutputSize int64
}

// Woven returns the results of the classes that were rewritten.
func (r *Report) Woven() []*weave.Result {
	var out []*weave.Result
	for _, res := range r.Results {
		if res.Woven {
			out = append(out, res)
		}
	}
	return out
}

// IsClass reports whether an entry name is a class that may be woven.
// Module and package descriptors are never candidates.
func IsClass(name string) bool {
	base := path.Base(name)
	return strings.HasSuffix(base, ".class") && base != "module-info.class" && base != "package-info.class"
}

type job struct {
	name string
	data []byte
	res  *weave.Result
}

// weaveAll runs the engine over jobs with at most workers goroutines.
func weaveAll(ctx context.Context, e *weave.Engine, jobs []*job, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.WeaveClass(j.data)
			if err != nil {
				return errors.Wrapf(err, "%s", j.name)
			}
			j.res = res
			return nil
		})
	}
	return g.Wait()
}

func (r *Report) add(j *job) {
	r.Results = append(r.Results, j.res)
	r.InputSize += int64(len(j.data))
	r.OutputSize += int64(len(j.res.Bytes))
	for _, gen := range j.res.Generated {
		r.OutputSize += int64(len(gen.Bytes))
	}
}

// Weave copies the archive r to w, weaving its classes.
func Weave(ctx context.Context, r *zip.Reader, w io.Writer, e *weave.Engine, workers int) (*Report, error) {
	var jobs []*job
	byFile := make(map[*zip.File]*job)
	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
		if !IsClass(f.Name) || f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		j := &job{name: f.Name, data: data}
		jobs = append(jobs, j)
		byFile[f] = j
	}
	if err := weaveAll(ctx, e, jobs, workers); err != nil {
		return nil, err
	}

	report := &Report{}
	zw := zip.NewWriter(w)
	for _, f := range r.File {
		j, ok := byFile[f]
		if !ok || !j.res.Woven {
			if err := zw.Copy(f); err != nil {
				return nil, errors.Wrapf(err, "copying %s", f.Name)
			}
			if ok {
				report.add(j)
			}
			continue
		}

		hdr := f.FileHeader
		if err := writeEntry(zw, &hdr, j.res.Bytes); err != nil {
			return nil, err
		}
		for _, gen := range j.res.Generated {
			name := gen.Name + ".class"
			if names[name] {
				return nil, errors.Errorf("%s: generated class %s already exists", j.name, name)
			}
			names[name] = true
			genHdr := zip.FileHeader{Name: name, Method: zip.Deflate, Modified: f.Modified}
			if err := writeEntry(zw, &genHdr, gen.Bytes); err != nil {
				return nil, err
			}
		}
		report.add(j)
		e.Logger().WithFields(log.Fields{"entry": f.Name, "methods": len(j.res.Methods)}).Debug("rewrote entry")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(err, "finishing archive")
	}
	return report, nil
}

// WeaveFile weaves the jar at src into a new jar at dst.
func WeaveFile(ctx context.Context, src, dst string, e *weave.Engine, workers int) (*Report, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", src)
	}
	defer zr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s", dst)
	}
	report, err := Weave(ctx, &zr.Reader, out, e, workers)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "closing %s", dst)
	}
	if err != nil {
		os.Remove(dst)
		return nil, err
	}
	return report, nil
}

// WeaveDir weaves every class under src into the same relative path under
// dst. Other files are copied.
func WeaveDir(ctx context.Context, src, dst string, e *weave.Engine, workers int) (*Report, error) {
	var jobs []*job
	var others []string
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !IsClass(rel) {
			others = append(others, rel)
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		jobs = append(jobs, &job{name: rel, data: data})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", src)
	}
	if err := weaveAll(ctx, e, jobs, workers); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, j := range jobs {
		if err := writeFile(dst, j.name, j.res.Bytes); err != nil {
			return nil, err
		}
		for _, gen := range j.res.Generated {
			if err := writeFile(dst, gen.Name+".class", gen.Bytes); err != nil {
				return nil, err
			}
		}
		report.add(j)
	}
	for _, rel := range others {
		data, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		if err := writeFile(dst, rel, data); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", f.Name)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", f.Name)
	}
	return data, nil
}

func writeEntry(zw *zip.Writer, hdr *zip.FileHeader, data []byte) error {
	hdr.CRC32, hdr.CompressedSize64, hdr.UncompressedSize64 = 0, 0, 0
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Wrapf(err, "writing %s", hdr.Name)
	}
	_, err = fw.Write(data)
	return errors.Wrapf(err, "writing %s", hdr.Name)
}

func writeFile(root, rel string, data []byte) error {
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", rel)
	}
	return errors.Wrapf(os.WriteFile(p, data, 0o644), "writing %s", rel)
}
