package service

import (
	"net/http"
	"sort"

	"github.com/flexa/capacity-smart-contracts/types"
	"github.com/gin-gonic/gin"
)

type RootsResponse struct {
	MaxGeneration uint64                 `json:"max_generation"`
	Roots         []types.WithdrawalRoot `json:"roots"`
}

// roots lists the registered withdrawal roots ordered by generation.
func (s *Service) roots(c *gin.Context) {
	cState, ok := s.getStateForRequest(c)
	if !ok {
		return
	}

	cState.RLock()
	defer cState.RUnlock()

	list := cState.Roots().List()
	sort.Slice(list, func(i, j int) bool {
		if list[i].Generation != list[j].Generation {
			return list[i].Generation < list[j].Generation
		}
		return list[i].Root.Compare(list[j].Root) < 0
	})
	if list == nil {
		list = []types.WithdrawalRoot{}
	}

	c.JSON(http.StatusOK, RootsResponse{
		MaxGeneration: cState.App().GetMaxGeneration(),
		Roots:         list,
	})
}

// root returns the generation of a single root, 0 for an unknown one.
func (s *Service) root(c *gin.Context) {
	root, err := types.ParseHash(c.Param("root"))
	if err != nil {
		s.createError(c, http.StatusBadRequest, "", err.Error(), nil)
		return
	}

	cState, ok := s.getStateForRequest(c)
	if !ok {
		return
	}

	cState.RLock()
	defer cState.RUnlock()

	c.JSON(http.StatusOK, types.WithdrawalRoot{
		Root:       root,
		Generation: cState.Roots().GetGeneration(root),
	})
}
