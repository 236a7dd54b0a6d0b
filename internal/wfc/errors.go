package wfc

import "errors"

var (
	ErrCatalogEmpty        = errors.New("wfc: tile catalog is empty")
	ErrDuplicateTileID     = errors.New("wfc: duplicate tile id in catalog")
	ErrBlankTileID         = errors.New("wfc: tile id is blank")
	ErrInvalidConnector    = errors.New("wfc: invalid connector symbol")
	ErrInvalidSize         = errors.New("wfc: invalid grid size")
	ErrOutOfBounds         = errors.New("wfc: coordinate out of bounds")
	ErrDuplicateAssignment = errors.New("wfc: cell is already occupied")
	ErrUnknownTile         = errors.New("wfc: unknown tile id")
	ErrInvalidSeed         = errors.New("wfc: invalid seed")
)
