package object

import (
	"ember/internal/class"
	"ember/internal/gc"
)

// PackageObjectData is the Data a package-qualified name resolves to at the value
// level: a thin back-pointer onto the package's metadata, letting `pkg.member`
// indexing and `typeof` report the package itself as a first-class value.
type PackageObjectData struct {
	Base
	Meta *class.PackageData
}

func NewPackageObject(rt *gc.Runtime, meta *class.PackageData) *PackageObjectData {
	d := &PackageObjectData{Meta: meta}
	rt.Register(d)
	return d
}

func (p *PackageObjectData) CloneData(rt *gc.Runtime) gc.Data { return p }
