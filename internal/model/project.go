package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound marks lookups of ids the project does not hold. Callers test
// for it with errors.Is.
var ErrNotFound = errors.New("not in project")

// Project is the aggregate root. It owns all images and groups and is the
// only sanctioned entry point for cross-group mutations, so membership
// invariants are enforced in one place.
type Project struct {
	images     map[uuid.UUID]*Image
	imageOrder []uuid.UUID

	groups     map[uuid.UUID]*Group
	groupOrder []uuid.UUID
}

func NewProject() *Project {
	return &Project{
		images: make(map[uuid.UUID]*Image),
		groups: make(map[uuid.UUID]*Group),
	}
}

// AddImage registers an image with the project.
func (p *Project) AddImage(img *Image) error {
	if _, ok := p.images[img.ID]; ok {
		return fmt.Errorf("image %s already in project", img.ID)
	}
	p.images[img.ID] = img
	p.imageOrder = append(p.imageOrder, img.ID)
	return nil
}

// RemoveImage removes an image and detaches every owned face from its group.
func (p *Project) RemoveImage(id uuid.UUID) error {
	img, ok := p.images[id]
	if !ok {
		return fmt.Errorf("image %s: %w", id, ErrNotFound)
	}
	for _, f := range img.faces {
		if f.group != nil {
			if err := f.group.RemoveFace(f); err != nil {
				return fmt.Errorf("detach face %s: %w", f.ID, err)
			}
		}
	}
	delete(p.images, id)
	for i, v := range p.imageOrder {
		if v == id {
			p.imageOrder = append(p.imageOrder[:i], p.imageOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (p *Project) Image(id uuid.UUID) (*Image, bool) {
	img, ok := p.images[id]
	return img, ok
}

// Images returns all images in insertion order.
func (p *Project) Images() []*Image {
	out := make([]*Image, 0, len(p.imageOrder))
	for _, id := range p.imageOrder {
		out = append(out, p.images[id])
	}
	return out
}

// FaceByID finds a face across all images.
func (p *Project) FaceByID(id uuid.UUID) (*Face, bool) {
	for _, imgID := range p.imageOrder {
		for _, f := range p.images[imgID].faces {
			if f.ID == id {
				return f, true
			}
		}
	}
	return nil, false
}

// Faces returns every face of every image, image by image.
func (p *Project) Faces() []*Face {
	var out []*Face
	for _, id := range p.imageOrder {
		out = append(out, p.images[id].faces...)
	}
	return out
}

// AddGroup registers a group with the project.
func (p *Project) AddGroup(g *Group) error {
	if _, ok := p.groups[g.ID]; ok {
		return fmt.Errorf("group %s already in project", g.ID)
	}
	p.groups[g.ID] = g
	p.groupOrder = append(p.groupOrder, g.ID)
	return nil
}

// RemoveGroup drops a group, detaching its faces and clearing any merge
// exclusions other groups hold against it.
func (p *Project) RemoveGroup(id uuid.UUID) error {
	g, ok := p.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	for _, f := range g.Faces() {
		if err := g.RemoveFace(f); err != nil {
			return fmt.Errorf("detach face %s: %w", f.ID, err)
		}
	}
	p.dropGroup(id)
	return nil
}

// RemoveAllGroups discards the whole grouping, leaving every face ungrouped.
// Used before a full batch re-cluster.
func (p *Project) RemoveAllGroups() {
	for _, g := range p.groups {
		for _, f := range g.Faces() {
			_ = g.RemoveFace(f)
		}
	}
	p.groups = make(map[uuid.UUID]*Group)
	p.groupOrder = nil
}

func (p *Project) Group(id uuid.UUID) (*Group, bool) {
	g, ok := p.groups[id]
	return g, ok
}

// Groups returns all groups in insertion order.
func (p *Project) Groups() []*Group {
	out := make([]*Group, 0, len(p.groupOrder))
	for _, id := range p.groupOrder {
		out = append(out, p.groups[id])
	}
	return out
}

// GroupByName finds a group by user-assigned name, compared case- and
// diacritic-insensitively ("Jiří" matches "jiri").
func (p *Project) GroupByName(name string) (*Group, bool) {
	want := NormalizeGroupName(name)
	for _, id := range p.groupOrder {
		g := p.groups[id]
		if g.Name != "" && NormalizeGroupName(g.Name) == want {
			return g, true
		}
	}
	return nil, false
}

// RenameGroup sets the user-assigned name of a group.
func (p *Project) RenameGroup(id uuid.UUID, name string) error {
	g, ok := p.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id, ErrNotFound)
	}
	g.Name = name
	return nil
}

// RemoveFaceFromGroup detaches a face from its current group.
func (p *Project) RemoveFaceFromGroup(f *Face) error {
	if f.group == nil {
		return fmt.Errorf("face %s is not in a group", f.ID)
	}
	return f.group.RemoveFace(f)
}

// MoveFaceToGroup detaches a face from its current group (if any) and adds
// it to dst.
func (p *Project) MoveFaceToGroup(f *Face, dst *Group) error {
	if _, ok := p.groups[dst.ID]; !ok {
		return fmt.Errorf("group %s: %w", dst.ID, ErrNotFound)
	}
	if f.group == dst {
		return nil
	}
	if f.group != nil {
		if err := f.group.RemoveFace(f); err != nil {
			return err
		}
	}
	return dst.AddFace(f)
}

// CombineGroups merges src into dst: dst ends up with the faces of both,
// its centroid stale for recompute, and src no longer exists in the project.
// Exclusion bookkeeping referencing src is dropped everywhere, since a
// deleted group can never be offered for merging again.
func (p *Project) CombineGroups(dstID, srcID uuid.UUID) error {
	if dstID == srcID {
		return fmt.Errorf("cannot merge group %s with itself", dstID)
	}
	dst, ok := p.groups[dstID]
	if !ok {
		return fmt.Errorf("group %s: %w", dstID, ErrNotFound)
	}
	src, ok := p.groups[srcID]
	if !ok {
		return fmt.Errorf("group %s: %w", srcID, ErrNotFound)
	}
	dst.absorb(src)
	p.dropGroup(srcID)
	return nil
}

// ExcludeMerge permanently marks a pair of groups as never-auto-merge.
// The relation is symmetric and persisted with the project.
func (p *Project) ExcludeMerge(aID, bID uuid.UUID) error {
	a, ok := p.groups[aID]
	if !ok {
		return fmt.Errorf("group %s: %w", aID, ErrNotFound)
	}
	b, ok := p.groups[bID]
	if !ok {
		return fmt.Errorf("group %s: %w", bID, ErrNotFound)
	}
	a.addMergeExclusion(b.ID)
	b.addMergeExclusion(a.ID)
	return nil
}

// dropGroup removes the group from the registry and clears exclusions other
// groups hold against it.
func (p *Project) dropGroup(id uuid.UUID) {
	delete(p.groups, id)
	for i, v := range p.groupOrder {
		if v == id {
			p.groupOrder = append(p.groupOrder[:i], p.groupOrder[i+1:]...)
			break
		}
	}
	for _, g := range p.groups {
		g.removeMergeExclusion(id)
	}
}
